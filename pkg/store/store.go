// Package store provides an atomic, file-backed JSON document store.
// Every component's persistence (audit log, transparency store, ZK
// store, auth store, mirror store) is a single JSON document rewritten
// on each mutation: write to a temp file, fsync, then rename into
// place so a crash mid-write never leaves a partial document.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"afr/internal/ledgercrypto"
)

// SaveJSON atomically writes v as canonical JSON to path.
func SaveJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := ledgercrypto.CanonicalJSON(v)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// LoadJSON reads and decodes the document at path into v. Returns
// (false, nil) without touching v when the file does not exist yet.
func LoadJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}
