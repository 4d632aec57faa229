// Package ledger maintains the metadata record of credential creation and
// expiry timestamps. The whole document is rewritten atomically on every
// update; there are no partial in-place edits.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xeipuuv/gojsonschema"

	kerrors "github.com/systmms/keyops/internal/errors"
)

// RotationPeriod is how long a credential stays valid before rotation is
// due. Applied uniformly; not per-credential configurable.
const RotationPeriod = 90 * 24 * time.Hour

// RotationDays is RotationPeriod expressed in days, persisted for tooling
// that reads the ledger directly.
const RotationDays = 90

// Filename is the ledger's basename inside the secrets directory.
const Filename = ".metadata.json"

const fileMode = 0o600

// Entry records one credential's lifecycle timestamps.
type Entry struct {
	Created string `json:"created"`
	Expires string `json:"expires"`
	Format  string `json:"format"`
	Service string `json:"service"`
}

// Document is the on-disk ledger shape.
type Document struct {
	CreatedAt    string           `json:"created_at"`
	RotateBy     string           `json:"rotate_by"`
	RotationDays int              `json:"rotation_days"`
	Secrets      map[string]Entry `json:"secrets"`
}

// documentSchema validates the ledger on load so a hand-edited or corrupted
// file fails loudly instead of producing bogus expiry math.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["created_at", "rotate_by", "rotation_days", "secrets"],
  "properties": {
    "created_at": {"type": "string"},
    "rotate_by": {"type": "string"},
    "rotation_days": {"type": "integer", "minimum": 1},
    "secrets": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["created", "expires", "format", "service"],
        "properties": {
          "created": {"type": "string"},
          "expires": {"type": "string"},
          "format": {"type": "string"},
          "service": {"type": "string"}
        }
      }
    }
  }
}`

// Ledger reads and rewrites the metadata document at a fixed path.
type Ledger struct {
	path string
}

// New creates a ledger handle for the document at path.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger document's location.
func (l *Ledger) Path() string {
	return l.path
}

// Exists reports whether the ledger document is present.
func (l *Ledger) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Load parses and validates the ledger document. A missing document is the
// signal that initialization has not happened; every lifecycle operation
// refuses to proceed on ErrUninitialized.
func (l *Ledger) Load() (*Document, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", l.path, kerrors.ErrUninitialized)
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	if doc.Secrets == nil {
		doc.Secrets = map[string]Entry{}
	}
	return &doc, nil
}

func validateDocument(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("ledger schema validation error: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("ledger document is malformed: %s", first.String())
	}
	return nil
}

// Create writes a fresh ledger document with global timestamps and no
// credential entries. Used once by the init flow.
func (l *Ledger) Create(createdAt time.Time) error {
	doc := &Document{
		CreatedAt:    FormatTime(createdAt),
		RotateBy:     FormatTime(createdAt.Add(RotationPeriod)),
		RotationDays: RotationDays,
		Secrets:      map[string]Entry{},
	}
	return l.Save(doc)
}

// UpdateCredential merges one credential's timestamps into the document,
// preserving all other entries, and rewrites the whole document atomically.
// Expiry is always created + RotationPeriod.
func (l *Ledger) UpdateCredential(name string, createdAt time.Time, format, service string) error {
	doc, err := l.Load()
	if err != nil {
		return err
	}

	doc.Secrets[name] = Entry{
		Created: FormatTime(createdAt),
		Expires: FormatTime(createdAt.Add(RotationPeriod)),
		Format:  format,
		Service: service,
	}
	return l.Save(doc)
}

// UpdateGlobal rewrites the top-level created_at/rotate_by pair with the
// same atomic discipline. Called after a full "rotate all" run succeeds.
func (l *Ledger) UpdateGlobal(createdAt time.Time) error {
	doc, err := l.Load()
	if err != nil {
		return err
	}

	doc.CreatedAt = FormatTime(createdAt)
	doc.RotateBy = FormatTime(createdAt.Add(RotationPeriod))
	return l.Save(doc)
}

// Save writes the document to a temp file in the same directory and renames
// it over the live ledger.
func (l *Ledger) Save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata.tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create ledger temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict ledger temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close ledger temp file: %w", err)
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}

// FormatTime renders a timestamp the way the ledger persists it: UTC,
// second precision, trailing Z.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ParseTime parses a ledger timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ledger timestamp %q: %w", s, err)
	}
	return t, nil
}
