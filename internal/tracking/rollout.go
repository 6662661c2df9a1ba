package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// UpdateActiveRuns makes exactly the runs in fractions active, with their
// fractions rebalanced to sum to one. Runs matched by base that are active
// or canary but absent from fractions are disabled, as are runs given a
// non-positive fraction. base.Status is ignored.
func (s *Store) UpdateActiveRuns(ctx context.Context, fractions map[string]float64, base Filter) error {
	balanced, err := RebalanceFractions(fractions)
	if err != nil {
		return err
	}

	newIDs, err := s.runIDs(ctx, base.WithStatus(New))
	if err != nil {
		return err
	}
	activeIDs, err := s.runIDs(ctx, base.WithStatus(Active))
	if err != nil {
		return err
	}
	canaryIDs, err := s.runIDs(ctx, base.WithStatus(Canary))
	if err != nil {
		return err
	}

	requested := sortedKeys(balanced)
	known := lo.Union(newIDs, activeIDs, canaryIDs)
	if unknown := lo.Without(requested, known...); len(unknown) > 0 {
		return fmt.Errorf("%w: %v", ErrRunNotFound, unknown)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range lo.Without(lo.Union(activeIDs, canaryIDs), requested...) {
			if err := s.changeStatus(ctx, tx, id, Disabled, 0); err != nil {
				return err
			}
		}
		for _, id := range lo.Intersect(known, requested) {
			if balanced[id] <= 0 {
				if err := s.changeStatus(ctx, tx, id, Disabled, 0); err != nil {
					return err
				}
				continue
			}
			if err := s.changeStatus(ctx, tx, id, Active, balanced[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChangeTestFractions reassigns test fractions among the runs matched by f,
// keeping each run's status. Matched runs absent from fractions, or given a
// non-positive fraction, are disabled.
func (s *Store) ChangeTestFractions(ctx context.Context, fractions map[string]float64, f Filter) error {
	balanced, err := RebalanceFractions(fractions)
	if err != nil {
		return err
	}
	runs, err := s.ListRuns(ctx, f)
	if err != nil {
		return err
	}
	byID := lo.KeyBy(runs, func(r Run) string { return r.ID })

	requested := sortedKeys(balanced)
	matched := lo.Keys(byID)
	if unknown := lo.Without(requested, matched...); len(unknown) > 0 {
		return fmt.Errorf("%w: %v", ErrRunNotFound, unknown)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range lo.Without(matched, requested...) {
			if err := s.changeStatus(ctx, tx, id, Disabled, 0); err != nil {
				return err
			}
		}
		for _, id := range requested {
			if balanced[id] <= 0 {
				if err := s.changeStatus(ctx, tx, id, Disabled, 0); err != nil {
					return err
				}
				continue
			}
			if err := s.changeStatus(ctx, tx, id, byID[id].Status, balanced[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) runIDs(ctx context.Context, f Filter) ([]string, error) {
	runs, err := s.ListRuns(ctx, f)
	if err != nil {
		return nil, err
	}
	return lo.Map(runs, func(r Run, _ int) string { return r.ID }), nil
}

func sortedKeys(m map[string]float64) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
