package relay

import "strings"

// BuildRoster produces the ordered candidate list for one logical call:
// primary first, then fallbacks, with empty and whitespace-only entries
// removed. Duplicates are preserved; a caller re-listing a model on purpose
// is respected.
func BuildRoster(primary string, fallbacks []string) []string {
	roster := make([]string, 0, len(fallbacks)+1)
	if strings.TrimSpace(primary) != "" {
		roster = append(roster, primary)
	}
	for _, m := range fallbacks {
		if strings.TrimSpace(m) == "" {
			continue
		}
		roster = append(roster, m)
	}
	return roster
}
