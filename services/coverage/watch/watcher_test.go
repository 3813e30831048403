// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startWatcher starts a watcher over a fresh temp dir and returns the
// dir and a channel receiving handled batches.
func startWatcher(t *testing.T) (string, <-chan []ExportChange) {
	t.Helper()
	dir := t.TempDir()
	batches := make(chan []ExportChange, 16)

	w, err := New(dir, func(changes []ExportChange) {
		batches <- changes
	}, &Options{Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(w.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !w.IsWatching() {
		t.Fatal("IsWatching() = false after Start")
	}
	return dir, batches
}

func waitForBatch(t *testing.T, batches <-chan []ExportChange) []ExportChange {
	t.Helper()
	select {
	case batch := <-batches:
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestExportWatcher_ReportsNewExport(t *testing.T) {
	dir, batches := startWatcher(t)

	path := filepath.Join(dir, "slow.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := waitForBatch(t, batches)
	found := false
	for _, c := range batch {
		if c.Path == path {
			found = true
		}
	}
	if !found {
		t.Errorf("batch %v does not contain %s", batch, path)
	}
}

func TestExportWatcher_DeduplicatesWrites(t *testing.T) {
	dir, batches := startWatcher(t)

	path := filepath.Join(dir, "slow.json")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	batch := waitForBatch(t, batches)
	count := 0
	for _, c := range batch {
		if c.Path == path {
			count++
		}
	}
	if count != 1 {
		t.Errorf("path appears %d times in batch, want 1", count)
	}
}

func TestExportWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir, batches := startWatcher(t)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A matching write afterwards proves the watcher is alive; the txt
	// file must not show up in the batch.
	path := filepath.Join(dir, "real.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := waitForBatch(t, batches)
	for _, c := range batch {
		if filepath.Ext(c.Path) != ".json" {
			t.Errorf("batch contains non-export file %s", c.Path)
		}
	}
}

func TestExportWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.Stop()
	w.Stop()

	if w.IsWatching() {
		t.Error("IsWatching() = true after Stop")
	}
}

func TestExportWatcher_StartTwice(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(w.Stop)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
}

func TestExportOp_String(t *testing.T) {
	tests := []struct {
		op   ExportOp
		want string
	}{
		{ExportOpCreate, "create"},
		{ExportOpWrite, "write"},
		{ExportOpRemove, "remove"},
		{ExportOpRename, "rename"},
		{ExportOp(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("ExportOp(%d).String() = %q, want %q", int(tt.op), got, tt.want)
		}
	}
}

func TestDeduplicate(t *testing.T) {
	now := time.Now()
	changes := []ExportChange{
		{Path: "a.json", Op: ExportOpCreate, Time: now},
		{Path: "b.json", Op: ExportOpCreate, Time: now},
		{Path: "a.json", Op: ExportOpWrite, Time: now.Add(time.Millisecond)},
	}

	deduped := deduplicate(changes)
	if len(deduped) != 2 {
		t.Fatalf("len(deduped) = %d, want 2", len(deduped))
	}
	if deduped[0].Path != "a.json" || deduped[0].Op != ExportOpWrite {
		t.Errorf("deduped[0] = %+v, want latest a.json write", deduped[0])
	}
	if deduped[1].Path != "b.json" {
		t.Errorf("deduped[1] = %+v, want b.json", deduped[1])
	}
}
