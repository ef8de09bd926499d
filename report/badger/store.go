// Package badger persists verification reports in BadgerDB.
//
// Reports are JSON encoded under keys of the form "report/<run>/<id>", so a
// prefix scan over "report/<run>/" lists a run.
package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/logging"
	"github.com/hupe1980/unfold/report"
)

const keyPrefix = "report/"

// Options configures a Store.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory. Useful for tests.
	InMemory bool

	// SyncWrites flushes every write to disk before returning.
	SyncWrites bool

	// GCInterval is how often value log garbage collection runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio for a value log rewrite.
	GCDiscardRatio float64

	// Logger receives badger's internal messages. Nil silences them.
	Logger logging.Logger
}

// Store is a core.ReportStore backed by BadgerDB. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	gc     *gcRunner
	logger logging.Logger
}

var _ core.ReportStore = (*Store)(nil)

// Open opens (or creates) a persistent store in dir.
func Open(dir string, optFns ...func(o *Options)) (*Store, error) {
	return New(append([]func(o *Options){func(o *Options) { o.Path = dir }}, optFns...)...)
}

// OpenInMemory opens a store that loses its data on Close.
func OpenInMemory() (*Store, error) {
	return New(func(o *Options) { o.InMemory = true; o.SyncWrites = false; o.GCInterval = 0 })
}

// New opens a store configured by optFns.
func New(optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("path is required for persistent report store")
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create report directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}

	bopts = bopts.WithSyncWrites(opts.SyncWrites).WithNumVersionsToKeep(1)

	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	s := &Store{db: db, logger: logger}

	if opts.GCInterval > 0 && !opts.InMemory {
		if opts.GCDiscardRatio <= 0 || opts.GCDiscardRatio >= 1 {
			_ = db.Close()
			return nil, fmt.Errorf("gc discard ratio must be in (0, 1), got %v", opts.GCDiscardRatio)
		}
		s.gc = newGCRunner(db, opts.GCInterval, opts.GCDiscardRatio, logger)
		s.gc.start()
	}

	return s, nil
}

func key(runID, reportID string) []byte {
	return []byte(keyPrefix + runID + "/" + reportID)
}

func runPrefix(runID string) []byte {
	return []byte(keyPrefix + runID + "/")
}

// Save stores (or overwrites) a report.
func (s *Store) Save(r core.Report) error {
	if err := report.ValidateKey(r); err != nil {
		return err
	}
	if strings.Contains(r.RunID, "/") {
		return fmt.Errorf("%w: run id %q contains '/'", report.ErrInvalidKey, r.RunID)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(r.RunID, r.ID), data)
	})
}

// Get returns a report or core.ErrNotFound.
func (s *Store) Get(runID, reportID string) (core.Report, error) {
	var r core.Report

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(runID, reportID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.Report{}, report.NotFound(runID, reportID)
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report %s/%s: %w", runID, reportID, err)
	}

	return r, nil
}

// List returns the reports of a run ordered by timestamp.
func (s *Store) List(runID string) ([]core.Report, error) {
	out := []core.Report{}
	prefix := runPrefix(runID)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: prefix})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r core.Report
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, r)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reports of %s: %w", runID, err)
	}

	report.Sort(out)

	return out, nil
}

// Delete removes a report. Unknown reports are ignored.
func (s *Store) Delete(runID, reportID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(runID, reportID))
	})
}

// DeleteRun removes every report of a run.
func (s *Store) DeleteRun(runID string) error {
	return s.db.DropPrefix(runPrefix(runID))
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// badgerLogger adapts logging.Logger to badger's printf-style logger.
type badgerLogger struct {
	logger logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
