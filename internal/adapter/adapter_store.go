package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"gopkg.in/yaml.v3"

	m "lasso.dev/pkg/lasso/internal/model"
)

const adapterKeyPrefix = "adapter\x00"

// StoredAdapter is what the adapter store keeps per adapter.
type StoredAdapter struct {
	CUT         string   `yaml:"cut"`
	Fingerprint string   `yaml:"fingerprint"`
	Rank        int      `yaml:"rank"`
	RunID       string   `yaml:"run_id"`
	ClassName   string   `yaml:"class"`
	Members     []string `yaml:"members,omitempty"`
	Sequences   int      `yaml:"sequences"`
	Passed      int      `yaml:"passed"`
}

// AdapterStoreConfig configures the badger database of an AdapterStore.
type AdapterStoreConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's own logs; nil silences them.
	Logger *slog.Logger
}

// AdapterStore remembers which adapters each CUT produced, keyed by CUT and
// fingerprint, so that a later run can replay exactly those adapters.
type AdapterStore struct {
	db *badger.DB
}

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
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenAdapterStore opens the store described by cfg.
func OpenAdapterStore(cfg AdapterStoreConfig) (*AdapterStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("adapter store path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create adapter store directory %s: %w", cfg.Path, err)
		}

		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open adapter store: %w", err)
	}

	return &AdapterStore{db: db}, nil
}

// Close closes the database.
func (s *AdapterStore) Close() error {
	return s.db.Close()
}

func cutPrefix(cut string) []byte {
	return []byte(adapterKeyPrefix + cut + "\x00")
}

func adapterKey(cut, fingerprint string) []byte {
	return append(cutPrefix(cut), fingerprint...)
}

// WriteAdapters replaces the adapters recorded for the CUTs in adapters.
func (s *AdapterStore) WriteAdapters(ctx context.Context, adapters []m.Report) error {
	if len(adapters) == 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		cleared := make(map[string]bool)

		for _, a := range adapters {
			if err := ctx.Err(); err != nil {
				return err
			}

			if !cleared[a.CUT] {
				if err := deletePrefix(txn, cutPrefix(a.CUT)); err != nil {
					return err
				}

				cleared[a.CUT] = true
			}

			entry := StoredAdapter{
				CUT:         a.CUT,
				Fingerprint: a.Fingerprint,
				Rank:        a.AdapterID,
				RunID:       a.RunID,
				ClassName:   a.ClassName,
				Members:     a.Members,
			}

			if err := putEntry(txn, entry); err != nil {
				return err
			}
		}

		return nil
	})
}

// ClearAdapters drops every adapter recorded for cut.
func (s *AdapterStore) ClearAdapters(ctx context.Context, cut string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return deletePrefix(txn, cutPrefix(cut))
	})
}

// WriteExecutedSequence implements the arena cell writer. Sequence
// outcomes are recorded by WriteObservations.
func (s *AdapterStore) WriteExecutedSequence(context.Context, m.Report, m.SequenceRecord) error {
	return nil
}

// WriteObservations records the pass counts of an adapter.
func (s *AdapterStore) WriteObservations(_ context.Context, report m.Report) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, report.CUT, report.Fingerprint)
		if errors.Is(err, badger.ErrKeyNotFound) {
			entry = StoredAdapter{
				CUT:         report.CUT,
				Fingerprint: report.Fingerprint,
				Rank:        report.AdapterID,
				RunID:       report.RunID,
				ClassName:   report.ClassName,
				Members:     report.Members,
			}
		} else if err != nil {
			return err
		}

		entry.Sequences = len(report.Sequences)
		entry.Passed = report.Passed()

		return putEntry(txn, entry)
	})
}

// Adapters returns the adapters recorded for cut in rank order.
func (s *AdapterStore) Adapters(ctx context.Context, cut string) ([]StoredAdapter, error) {
	var entries []StoredAdapter

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := cutPrefix(cut)

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read adapter %s: %w", it.Item().Key(), err)
			}

			var entry StoredAdapter
			if err := yaml.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("decode adapter %s: %w", it.Item().Key(), err)
			}

			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })

	return entries, nil
}

// Fingerprints returns the recorded fingerprints of cut in rank order.
func (s *AdapterStore) Fingerprints(ctx context.Context, cut string) ([]string, error) {
	entries, err := s.Adapters(ctx, cut)
	if err != nil {
		return nil, err
	}

	fingerprints := make([]string, len(entries))
	for i, e := range entries {
		fingerprints[i] = e.Fingerprint
	}

	return fingerprints, nil
}

func getEntry(txn *badger.Txn, cut, fingerprint string) (StoredAdapter, error) {
	var entry StoredAdapter

	item, err := txn.Get(adapterKey(cut, fingerprint))
	if err != nil {
		return entry, err
	}

	err = item.Value(func(val []byte) error {
		return yaml.Unmarshal(val, &entry)
	})
	if err != nil {
		return entry, fmt.Errorf("decode adapter %s/%s: %w", cut, fingerprint, err)
	}

	return entry, nil
}

func putEntry(txn *badger.Txn, entry StoredAdapter) error {
	raw, err := yaml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode adapter %s/%s: %w", entry.CUT, entry.Fingerprint, err)
	}

	if err := txn.Set(adapterKey(entry.CUT, entry.Fingerprint), raw); err != nil {
		return fmt.Errorf("store adapter %s/%s: %w", entry.CUT, entry.Fingerprint, err)
	}

	return nil
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}

	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete adapter %s: %w", key, err)
		}
	}

	return nil
}
