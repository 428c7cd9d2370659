package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/models"
	"github.com/nahidhasan98/commit-notifier/internal/reporter"
)

// Store persists a Ledger as a pretty-printed JSON array in a single file
type Store struct {
	path              string
	quarantineCorrupt bool
	reporter          reporter.Reporter
	log               *logger.Logger
}

// NewStore creates a ledger store for path. When quarantineCorrupt is set a
// file that fails to parse is moved aside and replaced by an empty ledger.
func NewStore(path string, quarantineCorrupt bool, rep reporter.Reporter, log *logger.Logger) *Store {
	return &Store{
		path:              path,
		quarantineCorrupt: quarantineCorrupt,
		reporter:          rep,
		log:               log.Component("ledger"),
	}
}

// Path returns the ledger file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the ledger. It never fails: read and parse errors are reported
// and yield an empty ledger. A missing file is created empty.
func (s *Store) Load(ctx context.Context) *Ledger {
	l, err := s.Read()
	if err == nil {
		return l
	}

	if stderrors.Is(err, fs.ErrNotExist) {
		s.log.Infof("Commit ledger %s not found, creating an empty one", s.path)
		l = New(nil)
		if err := s.Persist(l); err != nil {
			s.reporter.Report(ctx, err, "creating the commit ledger")
		}
		return l
	}

	s.reporter.Report(ctx, err, "loading commits from file")

	if errors.Is(err, errors.ErrCodeLedgerCorrupt) && s.quarantineCorrupt {
		s.quarantine(ctx)
	}

	return New(nil)
}

// Read reads and parses the ledger file without any recovery
func (s *Store) Read() (*Ledger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.LedgerReadFailed(err, s.path)
	}

	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, errors.LedgerCorrupt(fmt.Errorf("invalid JSON"), s.path)
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.LedgerCorrupt(fmt.Errorf("top-level value is not an array"), s.path)
	}

	var commits []models.Commit
	if err := json.Unmarshal(trimmed, &commits); err != nil {
		return nil, errors.LedgerCorrupt(err, s.path)
	}

	l := New(commits)
	if dropped := len(commits) - l.Len(); dropped > 0 {
		s.log.Warnf("Dropped %d duplicate commit(s) while loading %s", dropped, s.path)
	}
	return l, nil
}

// Persist rewrites the whole ledger file. The document is written to a
// temporary file first and renamed into place.
func (s *Store) Persist(l *Ledger) error {
	commits := l.Commits()
	data, err := json.MarshalIndent(commits, "", "  ")
	if err != nil {
		return errors.LedgerWriteFailed(err, s.path)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.LedgerWriteFailed(err, s.path)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.LedgerWriteFailed(err, s.path)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.LedgerWriteFailed(err, s.path)
	}

	s.log.Debugf("Persisted %d commit(s) to %s", len(commits), s.path)
	return nil
}

func (s *Store) quarantine(ctx context.Context) {
	target := s.path + ".corrupt"
	if err := os.Rename(s.path, target); err != nil {
		s.reporter.Report(ctx, errors.LedgerWriteFailed(err, target), "quarantining the corrupt commit ledger")
		return
	}
	s.log.Warnf("Moved corrupt commit ledger to %s", target)

	if err := s.Persist(New(nil)); err != nil {
		s.reporter.Report(ctx, err, "recreating the commit ledger")
	}
}
