// Package dedup selects the fetched commits that are not yet in the ledger.
package dedup

import (
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

// Diff returns the members of fetched whose identifier is absent from known,
// in fetch order. A repeated identifier within fetched is kept only once.
// Equality is by identifier only.
func Diff(fetched, known []models.Commit) []models.Commit {
	seen := make(map[string]struct{}, len(known)+len(fetched))
	for _, c := range known {
		seen[c.ID.Key()] = struct{}{}
	}

	fresh := make([]models.Commit, 0)
	for _, c := range fetched {
		key := c.ID.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh
}
