// Package aggregate merges requirements extracted from many pages into one
// deduplicated set.
package aggregate

import (
	"slices"
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Key is the exact-deduplication key of r: the form number when present,
// otherwise source and name, case-insensitively. Records with neither a form
// number nor a name have no key and are never merged.
func Key(r model.Requirement) string {
	if form := strings.ToLower(strings.TrimSpace(r.FormNumber)); form != "" {
		return "form:" + form
	}
	name := strings.ToLower(strings.TrimSpace(r.Name))
	if name == "" {
		return ""
	}
	return "name:" + strings.ToLower(strings.TrimSpace(r.Source)) + "|" + name
}

// DedupExact collapses records that share a Key. The first occurrence wins;
// later duplicates only fill its empty Deadline and Penalty and are recorded
// in Metadata.MergedFrom. The input is not modified. DedupExact is
// idempotent.
func DedupExact(reqs []model.Requirement) []model.Requirement {
	out := make([]model.Requirement, 0, len(reqs))
	seen := make(map[string]int, len(reqs))

	for _, r := range reqs {
		k := Key(r)
		if k == "" {
			out = append(out, r)
			continue
		}
		i, dup := seen[k]
		if !dup {
			seen[k] = len(out)
			out = append(out, r)
			continue
		}
		kept := &out[i]
		backfill(&kept.Deadline, r.Deadline)
		backfill(&kept.Penalty, r.Penalty)
		recordMerge(kept, r)
	}
	return out
}

// mergeInto folds dup into kept: every empty descriptive field of kept is
// filled from dup, present values are never overwritten.
func mergeInto(kept *model.Requirement, dup model.Requirement) {
	backfill(&kept.Description, dup.Description)
	backfill(&kept.FormNumber, dup.FormNumber)
	backfill(&kept.Deadline, dup.Deadline)
	backfill(&kept.Frequency, dup.Frequency)
	backfill(&kept.Penalty, dup.Penalty)
	backfill(&kept.AppliesCondition, dup.AppliesCondition)
	backfill(&kept.Citation, dup.Citation)
	backfill(&kept.SourceURL, dup.SourceURL)
	recordMerge(kept, dup)
}

func backfill(dst *string, src string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
		*dst = src
	}
}

// recordMerge appends dup's provenance to kept. The slice is clipped first so
// kept never writes into a backing array it shares with the input.
func recordMerge(kept *model.Requirement, dup model.Requirement) {
	ids := append(slices.Clip(kept.Metadata.MergedFrom), provenance(dup)...)
	merged := ids[:0:0]
	for _, id := range ids {
		if id != "" && id != kept.ID && !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}
	kept.Metadata.MergedFrom = merged
}

func provenance(r model.Requirement) []string {
	id := r.ID
	if id == "" {
		id = r.SourceURL
	}
	return append([]string{id}, r.Metadata.MergedFrom...)
}
