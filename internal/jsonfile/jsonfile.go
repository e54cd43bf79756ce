// Package jsonfile reads and atomically writes single-document JSON files.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/emergent-mind/internal/model"
)

// Read decodes the JSON document at path into v. It reports false when the
// file does not exist. A file that exists but cannot be decoded is an error.
func Read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", model.ErrStorage, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: decode %s: %v", model.ErrStorage, path, err)
	}
	return true, nil
}

// ReadOrSeed decodes path into v. If the file does not exist yet, seed is
// written to path first and then decoded into v, so v never aliases seed.
// It reports whether the file was created.
func ReadOrSeed(path string, seed, v any) (bool, error) {
	ok, err := Read(path, v)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return false, fmt.Errorf("%w: encode seed: %v", model.ErrStorage, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decode seed: %v", model.ErrStorage, err)
	}
	return true, nil
}

// Write encodes v as indented JSON and replaces path atomically.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", model.ErrStorage, path, err)
	}
	return writeAtomic(path, data)
}

// writeAtomic writes to a temp file, syncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create dir: %v", model.ErrStorage, err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open temp file: %v", model.ErrStorage, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: write temp file: %v", model.ErrStorage, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: sync temp file: %v", model.ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close temp file: %v", model.ErrStorage, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename temp file: %v", model.ErrStorage, err)
	}
	return nil
}
