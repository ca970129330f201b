package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// codecName is recorded in the meta table so a store written by an
// incompatible entry encoding can be recognized.
const codecName = "cbor/v1"

// sqliteBusy is the primary SQLITE_BUSY result code.
const sqliteBusy = 5

type SQLiteCache struct {
	mutex *sync.RWMutex
	db    *sql.DB
}

// NewSQLiteCache opens the cache db with the given filename.
//
// The database is opened in exclusive locking mode and the lock is taken
// before returning, so only one SQLiteCache may hold a given file at a time.
// Opening a file that is already held fails immediately with ErrStoreLocked.
func NewSQLiteCache(filename string) (*SQLiteCache, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New("cache db file name is required")
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// every pragma below is per connection and the exclusive lock lives on
	// the connection, so the pool must never open a second one
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	statements := []string{
		"PRAGMA busy_timeout = 0",
		"PRAGMA locking_mode = EXCLUSIVE",
		"PRAGMA journal_mode = WAL",
		"CREATE TABLE IF NOT EXISTS cache (key TEXT PRIMARY KEY, bytes BLOB)",
		"CREATE TABLE IF NOT EXISTS meta (name TEXT PRIMARY KEY, value TEXT NOT NULL)",
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, openError(filename, err)
		}
	}
	// the first write takes the exclusive lock, which is then held until Close
	if _, err := db.Exec("INSERT OR REPLACE INTO meta (name, value) VALUES ('codec', ?)", codecName); err != nil {
		_ = db.Close()
		return nil, openError(filename, err)
	}

	return &SQLiteCache{
		mutex: &sync.RWMutex{},
		db:    db,
	}, nil
}

func (s *SQLiteCache) Get(key string) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.db == nil {
		return nil, false, ErrClosed
	}
	var bytes []byte
	err := s.db.QueryRow("SELECT bytes FROM cache WHERE key = ?", key).Scan(&bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bytes, true, nil
}

func (s *SQLiteCache) Put(key string, value []byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	// a nil slice would be stored as NULL
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.Exec("INSERT OR REPLACE INTO cache (key, bytes) VALUES (?, ?)", key, value)
	return err
}

// Close closes the db and releases the file lock.
// It is safe to call more than once.
func (s *SQLiteCache) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Codec returns the entry codec name recorded in the db.
func (s *SQLiteCache) Codec() (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.db == nil {
		return "", ErrClosed
	}
	var codec string
	err := s.db.QueryRow("SELECT value FROM meta WHERE name = 'codec'").Scan(&codec)
	return codec, err
}

func openError(filename string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%w: %s: %v", ErrStoreLocked, filename, err)
	}
	return fmt.Errorf("open cache db %s: %w", filename, err)
}

// isBusy reports whether err is SQLite refusing access because another
// connection holds the lock.
func isBusy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code()&0xff == sqliteBusy {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
