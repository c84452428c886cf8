package localstore

import (
	"database/sql"
	"errors"
	"time"
)

// Setting keys.
const (
	keyViewMode   = "view_mode"
	keyCredential = "credential"
)

// GetSetting retrieves a setting value. Returns "" when the key is absent.
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting stores a setting value, overwriting any previous value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// DeleteSetting removes a setting. Absent keys are not an error.
func (db *DB) DeleteSetting(key string) error {
	_, err := db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// ViewMode returns the persisted dashboard view mode, "" when never set.
func (db *DB) ViewMode() (string, error) {
	return db.GetSetting(keyViewMode)
}

// SetViewMode persists the dashboard view mode.
func (db *DB) SetViewMode(mode string) error {
	return db.SetSetting(keyViewMode, mode)
}

// Credential returns the cached identity token, "" when none is cached.
func (db *DB) Credential() (string, error) {
	return db.GetSetting(keyCredential)
}

// SetCredential caches the identity token for silent re-authentication.
func (db *DB) SetCredential(token string) error {
	return db.SetSetting(keyCredential, token)
}

// ClearCredential removes the cached identity token.
func (db *DB) ClearCredential() error {
	return db.DeleteSetting(keyCredential)
}
