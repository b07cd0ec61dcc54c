// Package registry holds converted packing lists until they are downloaded
// or removed. Backends are interchangeable behind Store.
package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when no artifact has the requested id
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidID is returned for ids outside [0-9a-f]{1,32}
	ErrInvalidID = errors.New("invalid artifact id")
)

var validID = regexp.MustCompile(`^[0-9a-f]{1,32}$`)

// Artifact is the stored output of one processed document
type Artifact struct {
	ID         string
	Filename   string // <id>_<source stem>.csv
	SourceName string
	CSV        []byte
	Source     []byte // original PDF, optional
	Records    int
	CreatedAt  time.Time
}

// Entry is the listing view of an artifact
type Entry struct {
	ID        string    `json:"file_id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"-"`
}

// Store is the storage collaborator of the front-ends. Implementations must
// be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, a *Artifact) error
	Get(ctx context.Context, id string) (*Artifact, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// NewID returns a fresh 12-character hex id
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ValidateID rejects ids that could escape a backend's namespace
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Filename builds the stored CSV name for a source upload
func Filename(id, sourceName string) string {
	base := filepath.Base(sourceName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "packing_list"
	}
	return id + "_" + SecureName(stem) + ".csv"
}

// SecureName reduces a client-supplied file name to a safe ASCII form.
// Accented letters are decomposed first so "naïve" keeps its "i".
func SecureName(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	return out
}

func validateArtifact(a *Artifact) error {
	if a == nil {
		return errors.New("artifact cannot be nil")
	}
	if err := ValidateID(a.ID); err != nil {
		return err
	}
	if a.Filename == "" {
		return errors.New("artifact filename cannot be empty")
	}
	if !strings.HasPrefix(a.Filename, a.ID) {
		return fmt.Errorf("artifact filename %q must start with its id", a.Filename)
	}
	return nil
}
