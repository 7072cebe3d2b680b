// =============================================================================
// Trade Document Reconciler - Reconciler
// =============================================================================
//
// This module left-joins the primary (cost) records with the secondary
// (weight) records by normalized key.
//
// JOIN RULES:
//   - The primary document is authoritative for row identity: the output has
//     exactly one row per primary record, in primary order
//   - The secondary document only supplies the weight
//   - A primary record without a matching key gets an absent weight (never
//     zero at this stage)
//   - Secondary records without a matching primary are dropped and counted
//   - Duplicate secondary keys are resolved by Policy (last-wins by default,
//     in original document order)
//
// =============================================================================

package reconciler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// Policy resolves duplicate keys in the secondary record set.
type Policy int

const (
	// LastWins keeps the record appearing later in the document.
	LastWins Policy = iota

	// FirstWins keeps the record appearing first in the document.
	FirstWins
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "last_wins", "last-wins":
		return LastWins, nil
	case "first_wins", "first-wins":
		return FirstWins, nil
	default:
		return LastWins, fmt.Errorf("unknown conflict policy %q (want last_wins or first_wins)", s)
	}
}

// String returns the configuration name of the policy.
func (p Policy) String() string {
	if p == FirstWins {
		return "first_wins"
	}
	return "last_wins"
}

// Result is the outcome of one reconciliation.
type Result struct {
	// Rows has one entry per primary record, in primary order.
	Rows []types.MergedRow

	// Unmatched are secondary records whose key matched no primary record.
	// They are not part of the table; they are kept for auditing only.
	Unmatched []types.ItemRecord

	// Overwritten counts secondary records discarded by the conflict policy.
	Overwritten int
}

// Reconciler joins record sets under a conflict policy.
type Reconciler struct {
	policy Policy
}

// New creates a Reconciler.
func New(policy Policy) *Reconciler {
	return &Reconciler{policy: policy}
}

// Reconcile joins primary and secondary records. Neither input is modified.
func (r *Reconciler) Reconcile(primary, secondary []types.ItemRecord) *Result {
	result := &Result{}

	weights := make(map[string]decimal.NullDecimal, len(secondary))
	for _, rec := range secondary {
		if _, seen := weights[rec.Key]; seen {
			result.Overwritten++
			if r.policy == FirstWins {
				continue
			}
		}
		weights[rec.Key] = rec.Weight
	}

	used := make(map[string]bool, len(primary))
	result.Rows = make([]types.MergedRow, len(primary))
	for i, rec := range primary {
		row := types.MergedRow{
			Number:   rec.SourceOrder,
			Code:     rec.Code,
			Name:     rec.Name,
			Quantity: rec.Quantity,
			Cost:     rec.Cost,
		}
		if w, ok := weights[rec.Key]; ok {
			row.Weight = w
			row.Matched = true
			used[rec.Key] = true
		}
		result.Rows[i] = row
	}

	for _, rec := range secondary {
		if !used[rec.Key] {
			result.Unmatched = append(result.Unmatched, rec)
		}
	}

	return result
}

// Reconcile joins with the default last-wins policy.
func Reconcile(primary, secondary []types.ItemRecord) []types.MergedRow {
	return New(LastWins).Reconcile(primary, secondary).Rows
}
