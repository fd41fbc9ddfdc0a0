package postgres

import (
	"context"
	"database/sql"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/repository"
)

// ReadSnapshot loads centers and equipment inside one read-only repeatable-read
// transaction, so every row comes from the same database snapshot.
func (r *EquipmentRepository) ReadSnapshot(ctx context.Context, centerID string) (*repository.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, storeErr("read snapshot", err)
	}
	defer rollback(tx)

	snap := &repository.Snapshot{}
	if centerID == "" {
		snap.Centers, err = listCenters(ctx, tx)
		if err != nil {
			return nil, storeErr("read snapshot", err)
		}
		snap.Equipment, err = listEquipment(ctx, tx,
			`SELECT `+equipmentColumns+` FROM equipment WHERE deleted_on IS NULL ORDER BY center_id, id`)
	} else {
		var c *domain.Center
		c, err = getCenter(ctx, tx, centerID)
		if err != nil {
			return nil, storeErr("read snapshot", err)
		}
		snap.Centers = []domain.Center{*c}
		snap.Equipment, err = listEquipment(ctx, tx,
			`SELECT `+equipmentColumns+` FROM equipment WHERE center_id = $1 AND deleted_on IS NULL ORDER BY id`, centerID)
	}
	if err != nil {
		return nil, storeErr("read snapshot", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("read snapshot", err)
	}
	return snap, nil
}
