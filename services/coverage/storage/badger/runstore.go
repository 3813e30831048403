// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/covbuddy/services/coverage/diff"
	"github.com/AleutianAI/covbuddy/services/coverage/report"
)

// ErrRunNotFound indicates a run ID with no stored run behind it.
var ErrRunNotFound = errors.New("run not found")

// Key layout:
//
//	run/<uuid>       -> JSON-encoded Run
//	cfg/<config key> -> run ID owning that configuration
//	meta/run_seq     -> big-endian uint64 insertion counter
const (
	runPrefix = "run/"
	cfgPrefix = "cfg/"
	seqKey    = "meta/run_seq"
)

// Run is one persisted coverage run: a configuration plus the raw
// per-function records of its export.
//
// Only raw records are stored; the region tree is rebuilt through
// report.New on load, so storage can never bypass tree invariants.
type Run struct {
	// ID is the run's UUID, assigned at Put time when empty.
	ID string `json:"id"`

	// Label is an optional human-readable name for the run.
	Label string `json:"label,omitempty"`

	// CreatedAt is when the run was stored.
	CreatedAt time.Time `json:"created_at"`

	// Seq is the store-wide insertion sequence number. Mapping assembly
	// orders runs by Seq so diff partitions see insertion order.
	Seq uint64 `json:"seq"`

	// Features is the run's feature assignment as given at ingest.
	Features map[string]bool `json:"features"`

	// Functions holds the raw per-function region records.
	Functions []report.FunctionRecords `json:"functions"`
}

// Configuration returns the run's feature assignment as a diff
// configuration.
func (r *Run) Configuration() diff.Configuration {
	return diff.NewConfiguration(r.Features)
}

// Report rebuilds the run's coverage report from its stored records.
func (r *Run) Report() *report.CoverageReport {
	return report.New(r.Functions)
}

// RunStore persists coverage runs in BadgerDB.
//
// Thread Safety: safe for concurrent use; Badger transactions provide
// isolation, and duplicate-configuration checks run inside the Put
// transaction.
type RunStore struct {
	db *DB
}

// NewRunStore creates a run store on top of an open database.
func NewRunStore(db *DB) (*RunStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	return &RunStore{db: db}, nil
}

// Put stores a run.
//
// Description:
//
//	Assigns an ID and creation time when absent, allocates the next
//	insertion sequence number, and writes the run together with its
//	configuration index entry. A run whose configuration (enabled
//	feature set) is already stored is rejected.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	run - The run to store. Mutated: ID, CreatedAt, and Seq are filled in.
//
// Outputs:
//
//	error - diff.ErrDuplicateConfiguration when the configuration is
//	        already stored, or a wrapped storage error.
//
// Thread Safety: safe for concurrent use.
func (s *RunStore) Put(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run must not be nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	cfgKey := []byte(cfgPrefix + run.Configuration().Key())

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		// Reject a second run under the same configuration.
		if item, err := txn.Get(cfgKey); err == nil {
			var owner string
			if err := item.Value(func(v []byte) error {
				owner = string(v)
				return nil
			}); err != nil {
				return fmt.Errorf("read configuration index: %w", err)
			}
			return fmt.Errorf("%w: %s already stored as run %s",
				diff.ErrDuplicateConfiguration, run.Configuration(), owner)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("read configuration index: %w", err)
		}

		seq, err := nextSeq(txn)
		if err != nil {
			return err
		}
		run.Seq = seq

		value, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("encode run %s: %w", run.ID, err)
		}
		if err := txn.Set([]byte(runPrefix+run.ID), value); err != nil {
			return fmt.Errorf("store run %s: %w", run.ID, err)
		}
		if err := txn.Set(cfgKey, []byte(run.ID)); err != nil {
			return fmt.Errorf("store configuration index: %w", err)
		}
		return nil
	})
}

// nextSeq increments and returns the store-wide insertion counter.
func nextSeq(txn *badger.Txn) (uint64, error) {
	var seq uint64
	item, err := txn.Get([]byte(seqKey))
	switch {
	case err == nil:
		if err := item.Value(func(v []byte) error {
			if len(v) == 8 {
				seq = binary.BigEndian.Uint64(v)
			}
			return nil
		}); err != nil {
			return 0, fmt.Errorf("read run sequence: %w", err)
		}
	case errors.Is(err, badger.ErrKeyNotFound):
		// First run.
	default:
		return 0, fmt.Errorf("read run sequence: %w", err)
	}

	seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := txn.Set([]byte(seqKey), buf[:]); err != nil {
		return 0, fmt.Errorf("store run sequence: %w", err)
	}
	return seq, nil
}

// Get loads one run by ID.
//
// Outputs:
//
//	*Run - The stored run.
//	error - ErrRunNotFound or a wrapped storage error.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	var run *Run
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("read run %s: %w", id, err)
		}
		return item.Value(func(v []byte) error {
			run = &Run{}
			if err := json.Unmarshal(v, run); err != nil {
				return fmt.Errorf("decode run %s: %w", id, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns all stored runs in insertion order.
func (s *RunStore) List(ctx context.Context) ([]*Run, error) {
	var runs []*Run
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				run := &Run{}
				if err := json.Unmarshal(v, run); err != nil {
					return fmt.Errorf("decode run %s: %w", it.Item().Key(), err)
				}
				runs = append(runs, run)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Seq < runs[j].Seq })
	return runs, nil
}

// Delete removes one run and its configuration index entry.
//
// Outputs:
//
//	error - ErrRunNotFound or a wrapped storage error.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("read run %s: %w", id, err)
		}

		var run Run
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &run)
		}); err != nil {
			return fmt.Errorf("decode run %s: %w", id, err)
		}

		if err := txn.Delete([]byte(runPrefix + id)); err != nil {
			return fmt.Errorf("delete run %s: %w", id, err)
		}
		if err := txn.Delete([]byte(cfgPrefix + run.Configuration().Key())); err != nil {
			return fmt.Errorf("delete configuration index: %w", err)
		}
		return nil
	})
}

// Mapping assembles every stored run into a report mapping, in
// insertion order.
//
// Description:
//
//	Rebuilds each run's report from its raw records through the
//	validated construction path and pairs it with the run's
//	configuration. The duplicate check inside NewReportMapping cannot
//	fire for a consistent store; a corrupted configuration index
//	surfaces as diff.ErrDuplicateConfiguration here.
func (s *RunStore) Mapping(ctx context.Context) (*diff.ReportMapping, error) {
	runs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]diff.Entry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, diff.Entry{
			Config: run.Configuration(),
			Report: run.Report(),
		})
	}
	return diff.NewReportMapping(entries)
}
