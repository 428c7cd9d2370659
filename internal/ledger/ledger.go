package ledger

import (
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

// Ledger is the ordered set of commits that have already been notified.
// Identifiers are unique within a ledger.
type Ledger struct {
	commits []models.Commit
	index   map[string]int
}

// New creates a ledger from commits, keeping the first occurrence of every
// identifier.
func New(commits []models.Commit) *Ledger {
	l := &Ledger{
		commits: make([]models.Commit, 0, len(commits)),
		index:   make(map[string]int, len(commits)),
	}
	for _, c := range commits {
		l.Append(c)
	}
	return l
}

// Append adds a commit unless its identifier is already present
func (l *Ledger) Append(c models.Commit) bool {
	key := c.ID.Key()
	if _, ok := l.index[key]; ok {
		return false
	}
	l.index[key] = len(l.commits)
	l.commits = append(l.commits, c)
	return true
}

// Contains reports whether the identifier is present
func (l *Ledger) Contains(id models.FlexID) bool {
	_, ok := l.index[id.Key()]
	return ok
}

// FindByID looks up a commit. The identifier may be given as text even when
// the ledger stores it as a number.
func (l *Ledger) FindByID(id models.FlexID) (models.Commit, bool) {
	i, ok := l.index[id.Key()]
	if !ok {
		return models.Commit{}, false
	}
	return l.commits[i], true
}

// Commits returns the commits in insertion order
func (l *Ledger) Commits() []models.Commit {
	out := make([]models.Commit, len(l.commits))
	copy(out, l.commits)
	return out
}

// Len returns the number of commits
func (l *Ledger) Len() int {
	return len(l.commits)
}
