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
	"sort"
	"strings"
)

// Configuration labels one measured run with a finite set of named
// boolean feature switches.
//
// Features follow the closed-world rule: a feature that is not
// explicitly enabled is disabled. Two configurations with the same
// enabled set are therefore the same configuration, regardless of
// which disabled features they spell out.
type Configuration struct {
	values map[string]bool
}

// NewConfiguration builds a configuration from a feature map. The map
// is copied; the zero Configuration has no features enabled.
func NewConfiguration(features map[string]bool) Configuration {
	values := make(map[string]bool, len(features))
	for name, enabled := range features {
		values[name] = enabled
	}
	return Configuration{values: values}
}

// Enabled reports whether the named feature is enabled. Features never
// mentioned by the configuration are disabled.
func (c Configuration) Enabled(name string) bool {
	return c.values[name]
}

// EnabledFeatures returns the sorted names of all enabled features.
func (c Configuration) EnabledFeatures() []string {
	var names []string
	for name, enabled := range c.values {
		if enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Features returns a copy of the raw feature map as given to
// NewConfiguration, including explicitly disabled entries.
func (c Configuration) Features() map[string]bool {
	out := make(map[string]bool, len(c.values))
	for name, enabled := range c.values {
		out[name] = enabled
	}
	return out
}

// Key returns the canonical identity of the configuration: its sorted
// enabled features joined by commas. The empty configuration has the
// empty key.
func (c Configuration) Key() string {
	return strings.Join(c.EnabledFeatures(), ",")
}

// String renders the enabled feature set, e.g. "{header, slow}".
func (c Configuration) String() string {
	return "{" + strings.Join(c.EnabledFeatures(), ", ") + "}"
}
