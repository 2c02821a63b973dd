// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerstore persists published metrics in an embedded BadgerDB.
//
// A publish is one BadgerDB transaction: all metric and score records plus
// the pass pointer commit together or not at all, which is exactly the
// all-or-nothing contract of store.MetricsStore.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/relgraph/services/engine/graph"
	"github.com/AleutianAI/relgraph/services/engine/store"
)

// Key layout. The pass pointer is written last in the same transaction,
// so readers resolving it always see a fully published pass.
const (
	keyPass       = "meta/pass"
	prefixMetrics = "metrics/"
	prefixScores  = "scores/"
)

// Config holds configuration for the metrics store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory.
	Path string

	// InMemory enables in-memory mode, used by tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns durable production defaults for a path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// Store is the BadgerDB-backed store.MetricsStore implementation.
type Store struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open creates and opens the metrics store.
//
// Outputs:
//
//	*Store - The opened store. Caller must Close when done.
//	error - Non-nil if the path is invalid or the database cannot open.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an in-memory store for testing.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func metricKey(key graph.NodeKey) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixMetrics, key))
}

func scoreKey(key graph.NodeKey) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixScores, key))
}

// Publish implements store.MetricsStore. The whole pass commits in one
// transaction; a failed commit leaves the previous pass untouched.
func (s *Store) Publish(ctx context.Context, passID string, metrics []store.NodeMetrics, scores []store.ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	// Drop the previous pass's records so stale nodes disappear.
	for _, prefix := range []string{prefixMetrics, prefixScores} {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("clear previous pass: %w", err)
			}
		}
	}

	for _, nm := range metrics {
		data, err := json.Marshal(nm)
		if err != nil {
			return fmt.Errorf("marshal metrics for %s: %w", nm.Key, err)
		}
		if err := txn.Set(metricKey(nm.Key), data); err != nil {
			return fmt.Errorf("set metrics for %s: %w", nm.Key, err)
		}
	}
	for _, sr := range scores {
		data, err := json.Marshal(sr)
		if err != nil {
			return fmt.Errorf("marshal score for %s: %w", sr.Key, err)
		}
		if err := txn.Set(scoreKey(sr.Key), data); err != nil {
			return fmt.Errorf("set score for %s: %w", sr.Key, err)
		}
	}
	if err := txn.Set([]byte(keyPass), []byte(passID)); err != nil {
		return fmt.Errorf("set pass pointer: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}
	return nil
}

// LatestPassID implements store.MetricsStore.
func (s *Store) LatestPassID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var passID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPass))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			passID = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("read pass pointer: %w", err)
	}
	return passID, nil
}

// NodeMetrics implements store.MetricsStore.
func (s *Store) NodeMetrics(ctx context.Context, key graph.NodeKey) (store.NodeMetrics, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.NodeMetrics{}, false, err
	}
	var nm store.NodeMetrics
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metricKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &nm); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return store.NodeMetrics{}, false, fmt.Errorf("read metrics for %s: %w", key, err)
	}
	return nm, found, nil
}

var _ store.MetricsStore = (*Store)(nil)
