package asset

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrPersistence, err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: setting busy timeout: %v", ErrPersistence, err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS prefabs (
		id TEXT PRIMARY KEY,
		revision TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating table: %v", ErrPersistence, err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Load(id string) (*Document, Revision, error) {
	if err := ValidateID(id); err != nil {
		return nil, "", err
	}

	var data []byte
	err := s.db.QueryRow("SELECT data FROM prefabs WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("load %s: %w", id, ErrNotFound)
		}
		return nil, "", fmt.Errorf("%w: load %s: %v", ErrPersistence, id, err)
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", id, err)
	}
	return doc, RevisionOf(data), nil
}

// Save replaces the row for id in a single statement.
func (s *SQLiteStore) Save(id string, doc *Document) (Revision, error) {
	data, rev, err := encodeForSave(id, doc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO prefabs (id, revision, data) VALUES (?, ?, ?)",
		id, string(rev), data,
	)
	if err != nil {
		return "", fmt.Errorf("%w: save %s: %v", ErrPersistence, id, err)
	}
	return rev, nil
}

func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM prefabs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	return ids, nil
}
