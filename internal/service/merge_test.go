package service

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

func hashFromIndex(n int) string {
	return "0xhash" + string(rune('a'+n%26)) + string(rune('a'+(n/26)%26))
}

func TestMergeHistory_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("merged history never repeats a hash", prop.ForAll(
		func(ledgerIdx, chainIdx []int) bool {
			merged := mergeHistory(entriesFrom(ledgerIdx, types.SourceLedger), entriesFrom(chainIdx, types.SourceChain))
			seen := make(map[string]bool)
			for _, entry := range merged {
				if entry.Hash == "" {
					continue
				}
				if seen[entry.Hash] {
					return false
				}
				seen[entry.Hash] = true
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.Property("merged history is sorted newest first", prop.ForAll(
		func(ledgerIdx, chainIdx []int) bool {
			merged := mergeHistory(entriesFrom(ledgerIdx, types.SourceLedger), entriesFrom(chainIdx, types.SourceChain))
			for i := 1; i < len(merged); i++ {
				if merged[i].Timestamp.After(merged[i-1].Timestamp) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.Property("every ledger hash survives the merge", prop.ForAll(
		func(ledgerIdx, chainIdx []int) bool {
			ledgerEntries := entriesFrom(ledgerIdx, types.SourceLedger)
			merged := mergeHistory(ledgerEntries, entriesFrom(chainIdx, types.SourceChain))
			present := make(map[string]bool, len(merged))
			for _, entry := range merged {
				present[entry.Hash] = true
			}
			for _, entry := range ledgerEntries {
				if !present[entry.Hash] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.TestingRun(t)
}

// entriesFrom builds deterministic history entries from index lists, with
// duplicate indices deduplicated the way a real source would.
func entriesFrom(indices []int, source types.HistorySource) []models.HistoryEntry {
	seen := make(map[int]bool)
	var entries []models.HistoryEntry
	for _, n := range indices {
		if seen[n] {
			continue
		}
		seen[n] = true
		entries = append(entries, models.HistoryEntry{
			Hash:      hashFromIndex(n),
			Timestamp: time.Unix(int64(1_700_000_000+n*60), 0).UTC(),
			Source:    source,
		})
	}
	return entries
}
