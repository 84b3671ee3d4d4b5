package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Preferences is one named preference file inside the database.
// Every Put commits immediately; the last write to a key wins.
type Preferences struct {
	db   *DB
	file string
}

// DefaultFile returns the name of a profile's default preference file.
func DefaultFile(profile string) string {
	return profile + "_preferences"
}

// Preferences returns the preference file named file.
func (db *DB) Preferences(file string) *Preferences {
	return &Preferences{db: db, file: file}
}

// File returns the preference file name.
func (p *Preferences) File() string {
	return p.file
}

// Get returns the value stored under key. ok is false when the key is absent.
func (p *Preferences) Get(key string) (string, bool, error) {
	var value string
	err := p.db.QueryRow(`SELECT value FROM preferences WHERE file = ? AND key = ?`, p.file, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (p *Preferences) Put(key, value string) error {
	_, err := p.db.Exec(`
		INSERT INTO preferences (file, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		p.file, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put preference %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (p *Preferences) Remove(key string) error {
	if _, err := p.db.Exec(`DELETE FROM preferences WHERE file = ? AND key = ?`, p.file, key); err != nil {
		return fmt.Errorf("remove preference %q: %w", key, err)
	}
	return nil
}

// All returns every key in the file.
func (p *Preferences) All() (map[string]string, error) {
	rows, err := p.db.Query(`SELECT key, value FROM preferences WHERE file = ? ORDER BY key`, p.file)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	all := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		all[k] = v
	}
	return all, rows.Err()
}
