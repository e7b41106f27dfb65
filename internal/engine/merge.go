// Package engine implements the local/remote reconciliation and edit
// history engine behind the deal editing surface: snapshot merging, the
// undo stack, note commit/divergence tracking, the soft-delete buffer,
// and staleness classification. The Session type ties them together
// around a single mutable local draft.
package engine

import (
	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// Scalar fields taken from the local draft during a merge. These are
// edited via on-blur-commit inputs that may not yet have round-tripped
// to the canonical store, so an incoming snapshot can carry stale values
// for them. Everything else: canonical wins.
//
// Lender notes are protected separately in mergeLenders.
func applyFeeOverrides(result *deal.Deal, local *deal.Deal) {
	result.RetainerFee = local.RetainerFee
	result.MilestoneFee = local.MilestoneFee
	result.SuccessFeePercent = local.SuccessFeePercent
	result.TotalFee = local.TotalFee
	result.PreSigningHours = local.PreSigningHours
	result.PostSigningHours = local.PostSigningHours
}

// Merge reconciles an incoming canonical snapshot into the local draft
// and returns the new draft. Field-level precedence, no timestamps:
//
//   - local == nil → first load, incoming is adopted unchanged.
//   - scalars come from incoming except the fee override set (local).
//   - the lender list keeps local order; lenders missing from incoming
//     are dropped (remote deletion wins); retained lenders take every
//     field from incoming except Notes (local, protects in-progress
//     keystrokes) while NotesHistory is always incoming (append-only,
//     server confirmed); lenders only in incoming are appended.
//
// Merge is idempotent: applying the same snapshot twice with no local
// mutation in between yields an identical draft. It never mutates its
// inputs; the result is a fresh clone, safe to install as the draft.
func Merge(local *deal.Deal, incoming deal.Deal) deal.Deal {
	if local == nil {
		return incoming.Clone()
	}

	result := incoming.Clone()
	applyFeeOverrides(&result, local)
	result.Lenders = mergeLenders(local.Lenders, incoming.Lenders)

	return result
}

// mergeLenders rebuilds the lender list: local order first, remote
// deletions dropped, remote insertions appended at the end.
func mergeLenders(local, incoming []deal.Lender) []deal.Lender {
	byID := make(map[string]*deal.Lender, len(incoming))
	for i := range incoming {
		byID[incoming[i].ID] = &incoming[i]
	}

	merged := make([]deal.Lender, 0, len(incoming))
	seen := make(map[string]bool, len(local))

	for i := range local {
		remote, ok := byID[local[i].ID]
		if !ok {
			// Gone from the canonical snapshot: deleted remotely.
			continue
		}

		seen[local[i].ID] = true
		merged = append(merged, mergeLender(&local[i], remote))
	}

	// Remote insertions, in incoming order.
	for i := range incoming {
		if !seen[incoming[i].ID] {
			merged = append(merged, incoming[i].Clone())
		}
	}

	return merged
}

// mergeLender takes every field from the remote version except the live
// note draft, which stays local so a refresh never clobbers typing.
func mergeLender(local, remote *deal.Lender) deal.Lender {
	out := remote.Clone()
	out.Notes = local.Notes

	return out
}
