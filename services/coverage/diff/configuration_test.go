// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfiguration_ClosedWorld(t *testing.T) {
	c := NewConfiguration(map[string]bool{"slow": true, "header": false})

	assert.True(t, c.Enabled("slow"))
	assert.False(t, c.Enabled("header"), "explicitly disabled")
	assert.False(t, c.Enabled("ghost"), "never mentioned means disabled")
}

func TestConfiguration_Key(t *testing.T) {
	empty := NewConfiguration(nil)
	allOff := NewConfiguration(map[string]bool{"slow": false})
	both := NewConfiguration(map[string]bool{"slow": true, "header": true})

	assert.Equal(t, "", empty.Key())
	assert.Equal(t, "", allOff.Key(), "spelling out disabled features does not change identity")
	assert.Equal(t, "header,slow", both.Key())
	assert.Equal(t, "{header, slow}", both.String())
	assert.Equal(t, "{}", empty.String())
}

func TestConfiguration_EnabledFeatures(t *testing.T) {
	c := NewConfiguration(map[string]bool{"z": true, "a": true, "m": false})
	assert.Equal(t, []string{"a", "z"}, c.EnabledFeatures())
}

func TestConfiguration_CopiesFeatureMap(t *testing.T) {
	in := map[string]bool{"slow": true}
	c := NewConfiguration(in)

	in["slow"] = false
	assert.True(t, c.Enabled("slow"), "constructor must copy its input")

	out := c.Features()
	out["slow"] = false
	assert.True(t, c.Enabled("slow"), "accessor must return a copy")
}
