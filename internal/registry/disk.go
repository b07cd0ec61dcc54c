package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDirPerm is used when creating the store directories
const DefaultDirPerm = 0o750

// DiskStore keeps each CSV as outputs/<id>_<stem>.csv and the source PDF,
// when given, as uploads/<id>_<name>.pdf. The id prefix of a file name is
// the only index.
type DiskStore struct {
	outputDir string
	uploadDir string
}

// NewDiskStore creates both directories if needed
func NewDiskStore(outputDir, uploadDir string) (*DiskStore, error) {
	if outputDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if err := os.MkdirAll(outputDir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("cannot create output directory %s: %w", outputDir, err)
	}
	if uploadDir != "" {
		if err := os.MkdirAll(uploadDir, DefaultDirPerm); err != nil {
			return nil, fmt.Errorf("cannot create upload directory %s: %w", uploadDir, err)
		}
	}

	return &DiskStore{outputDir: outputDir, uploadDir: uploadDir}, nil
}

// Put implements Store. The CSV is written to a temporary file and renamed
// into place so readers never see a partial file.
func (d *DiskStore) Put(_ context.Context, a *Artifact) error {
	if err := validateArtifact(a); err != nil {
		return err
	}
	if filepath.Base(a.Filename) != a.Filename {
		return fmt.Errorf("artifact filename %q must not contain a path", a.Filename)
	}

	if err := writeAtomic(filepath.Join(d.outputDir, a.Filename), a.CSV); err != nil {
		return fmt.Errorf("store csv: %w", err)
	}

	if d.uploadDir != "" && a.Source != nil {
		name := a.ID + "_" + SecureName(strings.TrimSuffix(filepath.Base(a.SourceName), filepath.Ext(a.SourceName))) + ".pdf"
		if err := writeAtomic(filepath.Join(d.uploadDir, name), a.Source); err != nil {
			return fmt.Errorf("store source: %w", err)
		}
	}

	return nil
}

// Get implements Store
func (d *DiskStore) Get(_ context.Context, id string) (*Artifact, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	path, err := d.findCSV(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat csv: %w", err)
	}

	a := &Artifact{
		ID:        id,
		Filename:  filepath.Base(path),
		CSV:       data,
		Records:   countRows(data),
		CreatedAt: info.ModTime(),
	}

	if src := d.findUploads(id); len(src) > 0 {
		a.SourceName = strings.TrimPrefix(filepath.Base(src[0]), id+"_")
		if data, err := os.ReadFile(src[0]); err == nil {
			a.Source = data
		}
	}

	return a, nil
}

// Delete implements Store. It reports whether a CSV was removed; the source
// PDF is removed alongside when present.
func (d *DiskStore) Delete(_ context.Context, id string) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}

	removed := false
	for _, p := range d.matchCSV(id) {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
		removed = true
	}
	for _, p := range d.findUploads(id) {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}

	return removed, nil
}

// List implements Store
func (d *DiskStore) List(_ context.Context) ([]Entry, error) {
	paths, err := filepath.Glob(filepath.Join(d.outputDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		id, _, _ := strings.Cut(strings.TrimSuffix(name, ".csv"), "_")
		if ValidateID(id) != nil {
			continue
		}
		e := Entry{ID: id, Filename: name}
		if info, err := os.Stat(p); err == nil {
			e.CreatedAt = info.ModTime()
		}
		entries = append(entries, e)
	}

	sortEntries(entries)
	return entries, nil
}

// Close implements Store
func (d *DiskStore) Close() error { return nil }

func (d *DiskStore) findCSV(id string) (string, error) {
	matches := d.matchCSV(id)
	if len(matches) == 0 {
		return "", ErrNotFound
	}
	return matches[0], nil
}

// matchCSV returns <id>_*.csv files, then <id>.csv
func (d *DiskStore) matchCSV(id string) []string {
	matches, _ := filepath.Glob(filepath.Join(d.outputDir, id+"_*.csv"))
	plain := filepath.Join(d.outputDir, id+".csv")
	if _, err := os.Stat(plain); err == nil {
		matches = append(matches, plain)
	}
	return matches
}

func (d *DiskStore) findUploads(id string) []string {
	if d.uploadDir == "" {
		return nil
	}
	matches, _ := filepath.Glob(filepath.Join(d.uploadDir, id+"_*.pdf"))
	return matches
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// countRows counts data rows of a CSV with a header line
func countRows(data []byte) int {
	n := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	if n == 0 {
		return 0
	}
	return n - 1
}
