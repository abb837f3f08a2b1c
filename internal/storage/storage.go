package storage

import "context"

// SetStore persists named sets of opaque members. ReplaceSet swaps the whole
// set atomically; readers never observe a partially written set.
type SetStore interface {
	ReplaceSet(ctx context.Context, key string, members []string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
}

// uniqueMembers drops duplicates, keeping first-seen order.
func uniqueMembers(members []string) []string {
	out := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if _, ok := seen[member]; ok {
			continue
		}
		seen[member] = struct{}{}
		out = append(out, member)
	}
	return out
}
