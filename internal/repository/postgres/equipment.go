package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
)

const equipmentColumns = `id, center_id, type, brand, model, serial_number, status, condition, track_usage, usage_count, usage_limit, quantity, min_quantity, last_service_date, next_service_date, maintenance_reason, version, created_on, updated_on`

const rentalColumns = `id, equipment_id, renter_name, renter_email, from_date, until_date, rate, rate_timeframe, returned, condition_on_return, charge, overdue_notified_on, created_on`

type EquipmentRepository struct {
	db *sql.DB
}

func NewEquipmentRepository(db *sql.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func (r *EquipmentRepository) Create(ctx context.Context, e *domain.Equipment) error {
	logger.EnterMethod("EquipmentRepository.Create", "equipmentID", e.ID, "centerID", e.CenterID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("create equipment", err)
	}
	defer rollback(tx)

	count, limit := usageColumns(e.Usage)
	query := `INSERT INTO equipment (` + equipmentColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	logger.DatabaseCall("INSERT", "equipment", "equipmentID", e.ID)
	_, err = tx.ExecContext(ctx, query,
		e.ID, e.CenterID, e.Type, e.Brand, e.Model, e.SerialNumber, e.Status, e.Condition,
		e.Usage.IsTracked(), count, limit, e.Quantity, e.MinQuantity,
		e.LastServiceDate, e.NextServiceDate, e.MaintenanceReason, int64(1), e.CreatedOn, e.UpdatedOn)
	logger.DatabaseResult("INSERT", 1, err, "equipmentID", e.ID)
	if isForeignKeyViolation(err, "equipment_center_id_fkey") {
		return fmt.Errorf("center %s: %w", e.CenterID, domain.ErrNotFound)
	}
	if err != nil {
		return storeErr("create equipment", err)
	}

	if err := upsertRentals(ctx, tx, e.Rentals); err != nil {
		return storeErr("create equipment", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("create equipment", err)
	}

	e.Version = 1
	logger.ExitMethod("EquipmentRepository.Create", "equipmentID", e.ID)
	return nil
}

// GetByID reads the row and its rental periods from one read-only snapshot.
func (r *EquipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, storeErr("get equipment", err)
	}
	defer rollback(tx)

	e, err := getEquipment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("get equipment", err)
	}
	return e, nil
}

func getEquipment(ctx context.Context, q queryer, id string) (*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1 AND deleted_on IS NULL`
	e, err := scanEquipment(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("get equipment", err)
	}
	if err := attachRentals(ctx, q, []*domain.Equipment{e}); err != nil {
		return nil, storeErr("get equipment", err)
	}
	return e, nil
}

func (r *EquipmentRepository) ListByCenter(ctx context.Context, centerID string) ([]*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE center_id = $1 AND deleted_on IS NULL ORDER BY id`
	items, err := listEquipment(ctx, r.db, query, centerID)
	if err != nil {
		return nil, storeErr("list equipment by center", err)
	}
	return items, nil
}

func (r *EquipmentRepository) ListAll(ctx context.Context) ([]*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE deleted_on IS NULL ORDER BY center_id, id`
	items, err := listEquipment(ctx, r.db, query)
	if err != nil {
		return nil, storeErr("list equipment", err)
	}
	return items, nil
}

func listEquipment(ctx context.Context, q queryer, query string, args ...any) ([]*domain.Equipment, error) {
	logger.DatabaseCall("SELECT", "equipment", "args", args)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("SELECT", int64(len(items)), nil)

	if err := attachRentals(ctx, q, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *EquipmentRepository) Save(ctx context.Context, e *domain.Equipment, expectedVersion int64) error {
	logger.EnterMethod("EquipmentRepository.Save", "equipmentID", e.ID, "expectedVersion", expectedVersion)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("save equipment", err)
	}
	defer rollback(tx)

	count, limit := usageColumns(e.Usage)
	query := `UPDATE equipment SET type=$3, brand=$4, model=$5, serial_number=$6, status=$7, condition=$8,
	          track_usage=$9, usage_count=$10, usage_limit=$11, quantity=$12, min_quantity=$13,
	          last_service_date=$14, next_service_date=$15, maintenance_reason=$16, updated_on=$17,
	          version = version + 1
	          WHERE id = $1 AND version = $2 AND deleted_on IS NULL`
	logger.DatabaseCall("UPDATE", "equipment", "equipmentID", e.ID)
	res, err := tx.ExecContext(ctx, query,
		e.ID, expectedVersion, e.Type, e.Brand, e.Model, e.SerialNumber, e.Status, e.Condition,
		e.Usage.IsTracked(), count, limit, e.Quantity, e.MinQuantity,
		e.LastServiceDate, e.NextServiceDate, e.MaintenanceReason, e.UpdatedOn)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "equipmentID", e.ID)
		return storeErr("save equipment", err)
	}
	affected, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", affected, err, "equipmentID", e.ID)
	if err != nil {
		return storeErr("save equipment", err)
	}
	if affected == 0 {
		var current int64
		err := tx.QueryRowContext(ctx, `SELECT version FROM equipment WHERE id = $1 AND deleted_on IS NULL`, e.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("equipment %s: %w", e.ID, domain.ErrNotFound)
		}
		if err != nil {
			return storeErr("save equipment", err)
		}
		return fmt.Errorf("equipment %s at version %d, expected %d: %w", e.ID, current, expectedVersion, domain.ErrVersionConflict)
	}

	if err := upsertRentals(ctx, tx, e.Rentals); err != nil {
		return storeErr("save equipment", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("save equipment", err)
	}

	e.Version = expectedVersion + 1
	logger.ExitMethod("EquipmentRepository.Save", "equipmentID", e.ID, "version", e.Version)
	return nil
}

// upsertRentals inserts new periods and updates open ones. Closed rows are never rewritten.
func upsertRentals(ctx context.Context, tx *sql.Tx, rentals []domain.RentalPeriod) error {
	query := `INSERT INTO rental_periods (` + rentalColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          ON CONFLICT (id) DO UPDATE SET
	              until_date = EXCLUDED.until_date,
	              returned = EXCLUDED.returned,
	              condition_on_return = EXCLUDED.condition_on_return,
	              charge = EXCLUDED.charge,
	              overdue_notified_on = EXCLUDED.overdue_notified_on
	          WHERE rental_periods.returned = FALSE`
	for _, p := range rentals {
		_, err := tx.ExecContext(ctx, query,
			p.ID, p.EquipmentID, p.RenterName, p.RenterEmail, p.From, p.Until, p.Rate, p.RateTimeframe,
			p.Returned, p.ConditionOnReturn, p.Charge, p.OverdueNotifiedOn, p.CreatedOn)
		if isUniqueViolation(err, "rental_periods_one_open_idx") {
			return fmt.Errorf("equipment %s: %w", p.EquipmentID, domain.ErrOverlappingRental)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *EquipmentRepository) Delete(ctx context.Context, id string) error {
	logger.EnterMethod("EquipmentRepository.Delete", "equipmentID", id)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("delete equipment", err)
	}
	defer rollback(tx)

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM equipment WHERE id = $1 AND deleted_on IS NULL FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return storeErr("delete equipment", err)
	}

	var open int
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM rental_periods WHERE equipment_id = $1 AND returned = FALSE`, id).Scan(&open)
	if err != nil {
		return storeErr("delete equipment", err)
	}
	if open > 0 || domain.EquipmentStatus(status) == domain.EquipmentStatusRented {
		return fmt.Errorf("equipment %s: %w", id, domain.ErrHasOpenRental)
	}

	// Rows are retired rather than removed so closed rental history keeps its parent.
	logger.DatabaseCall("UPDATE", "equipment", "equipmentID", id, "action", "retire")
	_, err = tx.ExecContext(ctx, `UPDATE equipment SET deleted_on = $2 WHERE id = $1`, id, time.Now().UTC())
	logger.DatabaseResult("UPDATE", 1, err, "equipmentID", id)
	if err != nil {
		return storeErr("delete equipment", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("delete equipment", err)
	}

	logger.ExitMethod("EquipmentRepository.Delete", "equipmentID", id)
	return nil
}

func (r *EquipmentRepository) ListOverdueRentals(ctx context.Context, asOf time.Time) ([]domain.OverdueRental, error) {
	query := `SELECT r.equipment_id, e.center_id, r.id, r.renter_name, r.renter_email, r.until_date
	          FROM rental_periods r JOIN equipment e ON e.id = r.equipment_id
	          WHERE r.returned = FALSE AND r.until_date < $1 AND r.overdue_notified_on IS NULL AND e.deleted_on IS NULL
	          ORDER BY r.until_date, r.id`
	logger.DatabaseCall("SELECT", "rental_periods", "asOf", asOf)
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, storeErr("list overdue rentals", err)
	}
	defer rows.Close()

	var out []domain.OverdueRental
	for rows.Next() {
		var o domain.OverdueRental
		if err := rows.Scan(&o.EquipmentID, &o.CenterID, &o.RentalID, &o.RenterName, &o.RenterEmail, &o.Until); err != nil {
			return nil, storeErr("list overdue rentals", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list overdue rentals", err)
	}
	logger.DatabaseResult("SELECT", int64(len(out)), nil)
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*domain.Equipment, error) {
	var (
		e            domain.Equipment
		tracked      bool
		count, limit sql.NullInt64
		last, next   sql.NullTime
	)
	err := row.Scan(&e.ID, &e.CenterID, &e.Type, &e.Brand, &e.Model, &e.SerialNumber, &e.Status, &e.Condition,
		&tracked, &count, &limit, &e.Quantity, &e.MinQuantity, &last, &next, &e.MaintenanceReason,
		&e.Version, &e.CreatedOn, &e.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if tracked {
		e.Usage = domain.Tracked(uint32(count.Int64), uint32(limit.Int64))
	}
	if last.Valid {
		e.LastServiceDate = &last.Time
	}
	if next.Valid {
		e.NextServiceDate = &next.Time
	}
	return &e, nil
}

// attachRentals loads the rental periods of every item in one query.
func attachRentals(ctx context.Context, q queryer, items []*domain.Equipment) error {
	if len(items) == 0 {
		return nil
	}
	byID := lo.KeyBy(items, func(e *domain.Equipment) string { return e.ID })
	ids := lo.Keys(byID)

	query := `SELECT ` + rentalColumns + ` FROM rental_periods WHERE equipment_id = ANY($1) ORDER BY from_date, id`
	logger.DatabaseCall("SELECT", "rental_periods", "equipmentCount", len(ids))
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p            domain.RentalPeriod
			until, notif sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.EquipmentID, &p.RenterName, &p.RenterEmail, &p.From, &until, &p.Rate,
			&p.RateTimeframe, &p.Returned, &p.ConditionOnReturn, &p.Charge, &notif, &p.CreatedOn); err != nil {
			return err
		}
		if until.Valid {
			p.Until = &until.Time
		}
		if notif.Valid {
			p.OverdueNotifiedOn = &notif.Time
		}
		if e, ok := byID[p.EquipmentID]; ok {
			e.Rentals = append(e.Rentals, p)
		}
	}
	return rows.Err()
}

func usageColumns(u domain.UsageTracking) (sql.NullInt64, sql.NullInt64) {
	count, tracked := u.Count()
	limit, _ := u.Limit()
	if !tracked {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(count), Valid: true}, sql.NullInt64{Int64: int64(limit), Valid: true}
}
