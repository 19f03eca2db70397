// Package store appends match records to per-keyword line-delimited JSON
// files. Files are write-only from the pipeline's perspective; nothing here
// reads them back.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/douwatch/douwatch/internal/logger"
	"github.com/douwatch/douwatch/internal/model"
)

// Error is a filesystem failure during an append. The orchestrator logs it
// and keeps going; a full disk must not abort the run.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("store %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slugify sanitizes a keyword or rule name into a filesystem-safe filename
// stem: runs of non-alphanumeric characters become a single hyphen, leading
// and trailing hyphens are trimmed, and the result is lowercased.
func Slugify(s string) string {
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.ToLower(strings.Trim(s, "-"))
}

// Store appends MatchEntry records under a single output directory, one
// append-only .jsonl file per keyword/rule group. Single-writer assumption:
// concurrent processes appending to the same group are not supported.
type Store struct {
	dir string
	log logger.Interface
}

// New creates a Store rooted at dir. The directory is created lazily on
// first write.
func New(dir string, log logger.Interface) *Store {
	return &Store{dir: dir, log: log}
}

// Save appends one entry to its group file as a newline-terminated JSON
// line. Non-ASCII characters are written literally so the files stay
// human-readable. The file handle is held only for the duration of the call.
func (s *Store) Save(entry model.MatchEntry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &Error{Path: s.dir, Err: err}
	}

	stem := Slugify(entry.Keyword)
	if stem == "" {
		stem = "matches"
	}
	path := filepath.Join(s.dir, stem+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return &Error{Path: path, Err: err}
	}

	s.log.Debug("match appended", "path", path, "keyword", entry.Keyword)
	return nil
}
