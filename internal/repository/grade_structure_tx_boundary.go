package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-grades-api/internal/models"
)

// GradeStructureTxBoundary activates a structure inside one transaction that first takes a
// transaction-scoped advisory lock on the class. Concurrent activations for the same class
// serialise on the lock, and readers never observe the deactivated-but-not-inserted state.
type GradeStructureTxBoundary struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewGradeStructureTxBoundary(db *sqlx.DB, logger *zap.Logger) *GradeStructureTxBoundary {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeStructureTxBoundary{db: db, logger: logger}
}

// Activate deactivates every structure of structure.ClassID and inserts structure as active.
func (b *GradeStructureTxBoundary) Activate(ctx context.Context, structure *models.GradeStructure) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activation tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, structure.ClassID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("lock class %s: %w", structure.ClassID, err)
	}

	deactivated, err := deactivateByClass(ctx, tx, structure.ClassID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	structure.IsActive = true
	if err := insertStructure(ctx, tx, structure); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activation: %w", err)
	}

	b.logger.Debug("grade structure activated in transaction",
		zap.String("class_id", structure.ClassID),
		zap.String("structure_id", structure.ID),
		zap.Int64("deactivated", deactivated),
	)
	return nil
}
