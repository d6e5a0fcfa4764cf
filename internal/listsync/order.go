package listsync

import (
	"sort"

	"jobtracker/internal/domain/application"

	"github.com/google/uuid"
)

// order drops duplicate ids (first occurrence wins) and sorts by
// date_applied descending with undated records last. Ties keep the newest
// created_at first so the order is deterministic.
func order(in []application.JobApplication) []application.JobApplication {
	seen := make(map[uuid.UUID]struct{}, len(in))
	out := make([]application.JobApplication, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DateApplied, out[j].DateApplied
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out
}
