package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/dshills/apigate/internal/apidb"
)

// schemaVersion is bumped when the record envelope changes.
const schemaVersion = 1

const keyPrefix = "api/"

var (
	// ErrNotFound is returned when a descriptor is not stored.
	ErrNotFound = errors.New("descriptor not found")
	// ErrInvalidCategory is returned for an empty category or one containing '/'.
	ErrInvalidCategory = errors.New("invalid category")
)

// Config holds the database settings.
type Config struct {
	// Dir is the database directory. Empty means DefaultDir. Ignored when
	// InMemory is set.
	Dir string
	// InMemory keeps everything in RAM; used by tests and dry runs.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// DefaultConfig returns the settings for the on-disk store.
func DefaultConfig() Config {
	return Config{SyncWrites: true}
}

// InMemoryConfig returns the settings for a throwaway store.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// record is the value stored under each descriptor key.
type record struct {
	Version   int       `msgpack:"v"`
	DocID     string    `msgpack:"docId"`
	Category  string    `msgpack:"category"`
	Info      []byte    `msgpack:"info"`
	UpdatedAt time.Time `msgpack:"updatedAt"`
}

// Store is the snapshot database. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// badgerLogger routes BadgerDB's internal logging to zap.
type badgerLogger struct {
	l *zap.SugaredLogger
}

func (b *badgerLogger) Errorf(format string, args ...interface{})   { b.l.Errorf(format, args...) }
func (b *badgerLogger) Warningf(format string, args ...interface{}) { b.l.Warnf(format, args...) }
func (b *badgerLogger) Infof(format string, args ...interface{})    { b.l.Debugf(format, args...) }
func (b *badgerLogger) Debugf(format string, args ...interface{})   { b.l.Debugf(format, args...) }

// Open opens the store described by cfg. A nil logger discards output.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	dir := ""
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir = cfg.Dir
		if dir == "" {
			d, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{l: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("store opened", zap.String("dir", dir), zap.Bool("inMemory", cfg.InMemory))
	return &Store{db: db, dir: dir, logger: logger, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the database directory, or "" for an in-memory store.
func (s *Store) Dir() string {
	return s.dir
}

// Query returns the stored snapshot of category. An unknown category
// yields an empty snapshot.
func (s *Store) Query(ctx context.Context, category string) (*apidb.Snapshot, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	prefix := categoryPrefix(category)
	items := make(map[string]apidb.Descriptor)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var rec record
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decoding %s: %w", item.Key(), err)
			}
			d, err := apidb.ParseDescriptor(rec.DocID, rec.Info)
			if err != nil {
				return err
			}
			items[rec.DocID] = d
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", category, err)
	}
	return apidb.NewSnapshot(items), nil
}

// Get returns one stored descriptor.
func (s *Store) Get(ctx context.Context, category, docID string) (apidb.Descriptor, error) {
	if err := checkCategory(category); err != nil {
		return apidb.Descriptor{}, err
	}
	if err := ctx.Err(); err != nil {
		return apidb.Descriptor{}, err
	}
	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(descriptorKey(category, docID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apidb.Descriptor{}, ErrNotFound
	}
	if err != nil {
		return apidb.Descriptor{}, fmt.Errorf("reading %s: %w", docID, err)
	}
	return apidb.ParseDescriptor(rec.DocID, rec.Info)
}

// Put stores d as docID of category.
func (s *Store) Put(ctx context.Context, category, docID string, d apidb.Descriptor) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := s.encode(category, docID, d)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(descriptorKey(category, docID), val)
	})
}

// Delete removes docID from category. Deleting an absent descriptor is not
// an error.
func (s *Store) Delete(ctx context.Context, category, docID string) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(descriptorKey(category, docID))
	})
}

// Import replaces the stored snapshot of category with next and returns
// the delta that was applied: added and changed descriptors are written,
// removed ones deleted.
func (s *Store) Import(ctx context.Context, category string, next *apidb.Snapshot) (*apidb.ComparisonResult, error) {
	current, err := s.Query(ctx, category)
	if err != nil {
		return nil, err
	}
	res, err := apidb.Compare(current, next)
	if err != nil {
		return nil, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, ids := range [][]string{res.Added, res.Changed} {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d, _ := next.Get(id)
			val, err := s.encode(category, id, d)
			if err != nil {
				return nil, err
			}
			if err := wb.Set(descriptorKey(category, id), val); err != nil {
				return nil, fmt.Errorf("writing %s: %w", id, err)
			}
		}
	}
	for _, id := range res.Removed {
		if err := wb.Delete(descriptorKey(category, id)); err != nil {
			return nil, fmt.Errorf("deleting %s: %w", id, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("importing %s: %w", category, err)
	}

	s.logger.Info("snapshot imported",
		zap.String("category", category),
		zap.Int("added", len(res.Added)),
		zap.Int("changed", len(res.Changed)),
		zap.Int("removed", len(res.Removed)))
	return res, nil
}

// Stats describes the stored data.
type Stats struct {
	Dir        string         `json:"dir"`
	Entries    int            `json:"entries"`
	TotalBytes int64          `json:"totalBytes"`
	Categories map[string]int `json:"categories"`
}

// CategoryNames returns the categories in ascending order.
func (st Stats) CategoryNames() []string {
	names := make([]string, 0, len(st.Categories))
	for k := range st.Categories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Stats counts the stored descriptors per category.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Dir: s.dir, Categories: make(map[string]int)}
	prefix := []byte(keyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			rest := strings.TrimPrefix(string(item.Key()), keyPrefix)
			category, _, ok := strings.Cut(rest, "/")
			if !ok {
				continue
			}
			stats.Categories[category]++
			stats.Entries++
			stats.TotalBytes += item.EstimatedSize()
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("reading store stats: %w", err)
	}
	return stats, nil
}

// Clear removes every descriptor of category, or of all categories when
// category is empty. It returns the number of removed descriptors.
func (s *Store) Clear(ctx context.Context, category string) (int, error) {
	prefix := []byte(keyPrefix)
	if category != "" {
		if err := checkCategory(category); err != nil {
			return 0, err
		}
		prefix = categoryPrefix(category)
	}

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("listing keys: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", k, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("clearing store: %w", err)
	}
	s.logger.Info("store cleared", zap.String("category", category), zap.Int("removed", len(keys)))
	return len(keys), nil
}

func (s *Store) encode(category, docID string, d apidb.Descriptor) ([]byte, error) {
	info, err := d.Canonical()
	if err != nil {
		return nil, &apidb.MalformedDescriptorError{DocID: docID, Err: err}
	}
	val, err := msgpack.Marshal(&record{
		Version:   schemaVersion,
		DocID:     docID,
		Category:  category,
		Info:      info,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", docID, err)
	}
	return val, nil
}

func checkCategory(category string) error {
	if category == "" || strings.Contains(category, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return nil
}

func categoryPrefix(category string) []byte {
	return []byte(keyPrefix + category + "/")
}

func descriptorKey(category, docID string) []byte {
	return []byte(keyPrefix + category + "/" + docID)
}

// DefaultDir returns the OS-appropriate database directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "apigate", "store"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "apigate", "store"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "apigate", "store"), nil
		}
		return filepath.Join(home, "AppData", "Local", "apigate", "store"), nil
	default:
		return filepath.Join(home, ".local", "share", "apigate", "store"), nil
	}
}
