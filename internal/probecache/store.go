// Package probecache persists compiler probe results in a SQLite database
// so that restarts do not pay the cost of re-running every compiler. The
// cache key covers the compiler binary's identity (path, size, mtime) plus
// the probe configuration, so a compiler upgrade invalidates its entries
// without any explicit eviction.
package probecache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/FractalBrew/geckocpp/internal/compiler"
	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// Store provides persistence for probe results.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// Entry is one cached probe result: the parsed defaults plus the raw
// preprocessor output they were parsed from, retained for diagnostics.
type Entry struct {
	Defaults *compiler.Defaults
	Output   string
	StoredAt time.Time
}

// payload is the JSON shape compressed into the payload column.
type payload struct {
	Defaults *compiler.Defaults `json:"defaults"`
	Output   string             `json:"output,omitempty"`
}

// OpenStore opens or creates the probe database at <dir>/probes.db.
func OpenStore(dir fspath.Path, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir.String(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := dir.Join("probes.db").String()
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open probe database: %w", err)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-16000", // 16MB cache
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	store := &Store{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
		enc:    enc,
		dec:    dec,
	}

	if !dbExists {
		logger.Info("creating probe database", "path", dbPath)
		if err := store.initializeSchema(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialize probe schema: %w", err)
		}
	}

	return store, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// initializeSchema creates the probe tables.
func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS probes (
			key TEXT PRIMARY KEY,
			compiler TEXT NOT NULL,
			intellisense_mode TEXT NOT NULL,
			stored_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_probes_stored_at ON probes(stored_at DESC);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.dbPath
}

// Get retrieves a cached probe result. A miss returns nil, nil. Entries
// that no longer decode are dropped and treated as misses.
func (s *Store) Get(key string) (*Entry, error) {
	var blob []byte
	var storedAt string

	err := s.conn.QueryRow(`
		SELECT payload, stored_at FROM probes WHERE key = ?
	`, key).Scan(&blob, &storedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read probe entry: %w", err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		s.drop(key)
		return nil, nil
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil || p.Defaults == nil {
		s.drop(key)
		return nil, nil
	}

	entry := &Entry{Defaults: p.Defaults, Output: p.Output}
	if t, err := time.Parse(time.RFC3339, storedAt); err == nil {
		entry.StoredAt = t
	}

	return entry, nil
}

// Put saves or replaces a probe result. bin and mode are stored alongside
// the payload so listings can describe entries without decoding them.
func (s *Store) Put(key string, bin string, mode string, entry *Entry) error {
	raw, err := json.Marshal(payload{Defaults: entry.Defaults, Output: entry.Output})
	if err != nil {
		return fmt.Errorf("failed to encode probe entry: %w", err)
	}
	blob := s.enc.EncodeAll(raw, nil)

	_, err = s.conn.Exec(`
		INSERT OR REPLACE INTO probes (key, compiler, intellisense_mode, stored_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, key, bin, mode, time.Now().UTC().Format(time.RFC3339), blob)
	if err != nil {
		return fmt.Errorf("failed to store probe entry: %w", err)
	}

	s.logger.Debug("stored probe entry", "compiler", bin, "mode", mode, "bytes", len(blob))
	return nil
}

func (s *Store) drop(key string) {
	if _, err := s.conn.Exec(`DELETE FROM probes WHERE key = ?`, key); err != nil {
		s.logger.Warn("failed to drop stale probe entry", "error", err)
	}
}

// Summary describes one cache entry without its payload.
type Summary struct {
	Compiler string    `json:"compiler"`
	Mode     string    `json:"mode"`
	StoredAt time.Time `json:"storedAt"`
}

// Entries lists the cached probes, newest first.
func (s *Store) Entries() ([]Summary, error) {
	rows, err := s.conn.Query(`
		SELECT compiler, intellisense_mode, stored_at FROM probes
		ORDER BY stored_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list probe entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Summary
	for rows.Next() {
		var e Summary
		var storedAt string
		if err := rows.Scan(&e.Compiler, &e.Mode, &storedAt); err != nil {
			return nil, fmt.Errorf("failed to scan probe entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, storedAt); err == nil {
			e.StoredAt = t
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Stats reports the size of the cache.
type Stats struct {
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
	Path    string `json:"path"`
}

// Stats counts the cached entries and their compressed payload bytes.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{Path: s.dbPath}
	err := s.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM probes
	`).Scan(&st.Entries, &st.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read probe stats: %w", err)
	}
	return st, nil
}

// Clear removes all cached probes and reports how many were removed.
func (s *Store) Clear() (int64, error) {
	result, err := s.conn.Exec(`DELETE FROM probes`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear probe cache: %w", err)
	}
	return result.RowsAffected()
}
