package storage

import (
	"context"

	"github.com/cosmin-sisman/monday-project-generator/domain"
	"github.com/cosmin-sisman/monday-project-generator/reconcile"
)

// ApplyPlan runs a reconciliation plan inside a single transaction. A failed
// step rolls back every prior step of the same plan.
func (s *Storage) ApplyPlan(ctx context.Context, plan reconcile.Plan) error {
	return s.Mutate(ctx, func(tx *Tx) error {
		return reconcile.Apply(ctx, tx, plan)
	})
}

// RestoreTree replaces a project's full tree from a snapshot. When
// consumeSnapshotID is non-empty the snapshot is deleted in the same
// transaction, so an undo that fails to replace the tree keeps its snapshot.
func (s *Storage) RestoreTree(ctx context.Context, projectID string, tree domain.SnapshotTree, consumeSnapshotID string) error {
	return s.Mutate(ctx, func(tx *Tx) error {
		if err := tx.ReplaceTree(ctx, projectID, tree); err != nil {
			return err
		}
		if consumeSnapshotID != "" {
			return tx.DeleteSnapshot(ctx, consumeSnapshotID)
		}
		return nil
	})
}
