// Package stagefile reads and writes the JSON files that carry data between
// pipeline stages. Writes go to a temp file in the same directory followed
// by a rename, so readers never observe a partially written file.
package stagefile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by ReadJSON when the file does not exist.
var ErrNotFound = errors.New("stagefile: not found")

// ReadJSON decodes the file at path into v. A missing file returns an error
// that matches ErrNotFound via errors.Is.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(ErrNotFound, "stagefile: %s", path)
		}
		return eris.Wrapf(err, "stagefile: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "stagefile: decode %s", path)
	}
	return nil
}

// ReadJSONOptional is ReadJSON but leaves v untouched and returns false when
// the file does not exist.
func ReadJSONOptional(path string, v any) (bool, error) {
	err := ReadJSON(path, v)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// WriteJSON atomically replaces path with the indented JSON encoding of v.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "stagefile: encode %s", path)
	}
	return WriteFile(path, append(data, '\n'))
}

// WriteFile atomically replaces path with data, creating parent directories.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "stagefile: mkdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "stagefile: create temp for %s", path)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "stagefile: write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "stagefile: sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "stagefile: close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "stagefile: rename to %s", path)
	}
	return nil
}
