package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Archive moves every regular file of dir into the subfolder dir/<stamp> and
// returns that folder. A numeric suffix is added when the folder already exists.
func Archive(dir, stamp string) (string, error) {
	target := filepath.Join(dir, stamp)
	for i := 1; ; i++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(dir, fmt.Sprintf("%s-%d", stamp, i))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create archive %s: %w", target, err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		src := filepath.Join(dir, e.Name())
		if err := os.Rename(src, filepath.Join(target, e.Name())); err != nil {
			return "", fmt.Errorf("archive %s: %w", e.Name(), err)
		}
	}
	return target, nil
}

// Restore undoes Archive: regular files written to dir since archiving are
// removed, the archived files are moved back and the archive folder is deleted.
func Restore(dir, archived string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}

	saved, err := os.ReadDir(archived)
	if err != nil {
		return fmt.Errorf("read archive %s: %w", archived, err)
	}
	for _, e := range saved {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Rename(filepath.Join(archived, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("restore %s: %w", e.Name(), err)
		}
	}
	return os.Remove(archived)
}

// CopyFile copies src to dst byte for byte
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
