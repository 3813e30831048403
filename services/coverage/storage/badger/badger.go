// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger is the embedded store behind the coverage service.
// Runs survive CLI invocations here so diffs never re-parse exports.
//
// badger.go owns the database lifecycle (open, value-log GC, close) and
// the transaction helpers; runstore.go owns the run keyspace on top.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config describes one BadgerDB instance.
type Config struct {
	// Path is the database directory. Required unless InMemory is set;
	// created if missing.
	Path string

	// InMemory keeps everything off disk. Used by tests and --in-memory
	// service configs.
	InMemory bool

	// SyncWrites syncs every write to disk before acknowledging it.
	SyncWrites bool

	// GCInterval is how often the value log is garbage collected.
	// Zero disables GC; in-memory databases never run it.
	GCInterval time.Duration

	// GCDiscardRatio is the fraction of a value log file that must be
	// garbage before GC rewrites it.
	GCDiscardRatio float64
}

// DefaultConfig returns the persistent-store defaults: synced writes
// and GC every five minutes at a 0.5 discard ratio.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a throwaway configuration with persistence,
// sync, and GC all off.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DB is a BadgerDB handle plus the GC goroutine tied to its lifetime.
//
// Thread Safety: safe for concurrent use.
type DB struct {
	*badger.DB

	gcRatio float64
	gcStop  chan struct{}
	gcDone  chan struct{}
}

// OpenDB opens the database described by the configuration and, for
// persistent stores with a GCInterval, starts value log GC. Close
// stops GC and releases the database.
func OpenDB(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithLogger(nil)

	inner, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	db := &DB{DB: inner, gcRatio: cfg.GCDiscardRatio}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		db.gcStop = make(chan struct{})
		db.gcDone = make(chan struct{})
		go db.gcLoop(cfg.GCInterval)
	}
	return db, nil
}

// Close stops the GC goroutine (if any) and closes the database.
func (d *DB) Close() error {
	if d.gcStop != nil {
		close(d.gcStop)
		<-d.gcDone
		d.gcStop = nil
	}
	return d.DB.Close()
}

// WithTxn runs fn in a read-write transaction, committing when fn
// returns nil and discarding otherwise.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := d.DB.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// WithReadTxn runs fn in a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := d.DB.NewTransaction(false)
	defer txn.Discard()

	return fn(txn)
}

func (d *DB) gcLoop(interval time.Duration) {
	defer close(d.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.gcStop:
			return
		case <-ticker.C:
			d.runGC()
		}
	}
}

func (d *DB) runGC() {
	// ErrNoRewrite means nothing was garbage enough to collect.
	for {
		if err := d.DB.RunValueLogGC(d.gcRatio); err != nil {
			return
		}
	}
}
