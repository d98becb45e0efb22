// Package fusion merges archive and external results into ordered,
// provenance-named source groups.
package fusion

import (
	"strings"

	"github.com/ppiankov/precedent/internal/model"
)

// Fuse returns the archive group followed by external results split by
// publisher: those from the primary publisher form the "Recent" group, the
// rest the general external group. Empty external partitions are omitted.
// The archive group is always first, even when empty, so consumers can find
// the anchor by position. A URL appears at most once across all groups.
func Fuse(archive model.SourceGroup, external []model.SearchResult, primaryPublisher, label string) []model.SourceGroup {
	seen := make(map[string]bool)

	archive.Results = model.DedupInto(archive.Results, seen)
	if archive.SourceName == "" {
		archive.SourceName = model.ArchiveGroupName(label)
	}
	groups := []model.SourceGroup{archive}

	recent, other := SplitByPublisher(model.DedupInto(external, seen), primaryPublisher)
	if len(recent) > 0 {
		groups = append(groups, model.SourceGroup{SourceName: model.RecentGroupName(label), Results: recent})
	}
	if len(other) > 0 {
		groups = append(groups, model.SourceGroup{SourceName: model.GroupExternal, Results: other})
	}
	return groups
}

// SplitByPublisher partitions results on a case-insensitive exact publisher match
func SplitByPublisher(results []model.SearchResult, publisher string) (matching, rest []model.SearchResult) {
	want := strings.ToLower(strings.TrimSpace(publisher))
	for _, r := range results {
		if want != "" && strings.ToLower(strings.TrimSpace(r.Publisher)) == want {
			matching = append(matching, r)
		} else {
			rest = append(rest, r)
		}
	}
	return matching, rest
}
