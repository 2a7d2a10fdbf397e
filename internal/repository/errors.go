package repository

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
)

// uniqueInOrder drops repeated ids keeping the first occurrence
func uniqueInOrder(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
