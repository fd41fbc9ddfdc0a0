package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divecenter-backend/internal/domain"
)

var (
	equipmentCols = []string{"id", "center_id", "type", "brand", "model", "serial_number", "status", "condition", "track_usage", "usage_count", "usage_limit", "quantity", "min_quantity", "last_service_date", "next_service_date", "maintenance_reason", "version", "created_on", "updated_on"}
	rentalCols    = []string{"id", "equipment_id", "renter_name", "renter_email", "from_date", "until_date", "rate", "rate_timeframe", "returned", "condition_on_return", "charge", "overdue_notified_on", "created_on"}
	now           = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*EquipmentRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEquipmentRepository(db), mock
}

func equipmentRows() *sqlmock.Rows {
	return sqlmock.NewRows(equipmentCols)
}

func addTank(rows *sqlmock.Rows, id, centerID, status string) *sqlmock.Rows {
	return rows.AddRow(id, centerID, "TANK", "Faber", "12L", "SN-"+id, status, "GOOD", true, int64(95), int64(100), int32(1), int32(0), nil, nil, "", int64(3), now, now)
}

func rentalRows() *sqlmock.Rows {
	return sqlmock.NewRows(rentalCols)
}

func tank() *domain.Equipment {
	until := now.Add(72 * time.Hour)
	return &domain.Equipment{
		ID:        "eq-1",
		CenterID:  "center-1",
		Type:      domain.EquipmentTypeTank,
		Status:    domain.EquipmentStatusRented,
		Condition: domain.EquipmentConditionGood,
		Usage:     domain.Tracked(10, 100),
		Quantity:  1,
		Version:   3,
		UpdatedOn: now,
		Rentals: []domain.RentalPeriod{{
			ID: "r-1", EquipmentID: "eq-1", RenterName: "Jane Doe", From: now, Until: &until,
			Rate: decimal.NewFromInt(25), RateTimeframe: domain.RateTimeframeDay, CreatedOn: now,
		}},
	}
}

func TestEquipmentRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM equipment WHERE id = \\$1").
			WithArgs("eq-1").
			WillReturnRows(addTank(equipmentRows(), "eq-1", "center-1", "RENTED"))
		mock.ExpectQuery("SELECT (.+) FROM rental_periods WHERE equipment_id = ANY").
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(rentalRows().
				AddRow("r-0", "eq-1", "John Roe", "", now.Add(-240*time.Hour), now.Add(-200*time.Hour), "10.00", "DAY", true, "GOOD", "20.00", nil, now).
				AddRow("r-1", "eq-1", "Jane Doe", "jane@example.com", now, nil, "25.00", "DAY", false, "", "0", nil, now))
		mock.ExpectCommit()

		e, err := repo.GetByID(ctx, "eq-1")
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentTypeTank, e.Type)
		assert.Equal(t, domain.Tracked(95, 100), e.Usage)
		assert.Equal(t, int64(3), e.Version)
		require.Len(t, e.Rentals, 2)
		assert.True(t, e.Rentals[0].Returned)
		assert.True(t, decimal.NewFromInt(20).Equal(e.Rentals[0].Charge))
		require.NotNil(t, e.OpenRental())
		assert.Nil(t, e.OpenRental().Until)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Untracked row", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM equipment WHERE id = \\$1").
			WithArgs("eq-2").
			WillReturnRows(equipmentRows().AddRow("eq-2", "center-1", "WETSUIT", "", "", "", "AVAILABLE", "FAIR", false, nil, nil, int32(4), int32(2), now, nil, "", int64(1), now, now))
		mock.ExpectQuery("SELECT (.+) FROM rental_periods").WillReturnRows(rentalRows())
		mock.ExpectCommit()

		e, err := repo.GetByID(ctx, "eq-2")
		require.NoError(t, err)
		assert.False(t, e.Usage.IsTracked())
		require.NotNil(t, e.LastServiceDate)
		assert.Empty(t, e.Rentals)
	})

	t.Run("Not found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM equipment WHERE id = \\$1").
			WithArgs("missing").
			WillReturnRows(equipmentRows())
		mock.ExpectRollback()

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Row and rentals read in one transaction", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM equipment WHERE id = \\$1").
			WithArgs("eq-1").
			WillReturnRows(addTank(equipmentRows(), "eq-1", "center-1", "AVAILABLE"))
		mock.ExpectQuery("SELECT (.+) FROM rental_periods").WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := repo.GetByID(ctx, "eq-1")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Driver failure", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM equipment").WillReturnError(errors.New("connection refused"))
		mock.ExpectRollback()

		_, err := repo.GetByID(ctx, "eq-1")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestEquipmentRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("Success bumps version", func(t *testing.T) {
		repo, mock := newMock(t)
		e := tank()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE equipment SET").
			WithArgs("eq-1", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), true, int64(10), int64(100), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO rental_periods (.+) ON CONFLICT \\(id\\) DO UPDATE").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Save(ctx, e, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(4), e.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Version conflict", func(t *testing.T) {
		repo, mock := newMock(t)
		e := tank()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE equipment SET").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT version FROM equipment").
			WithArgs("eq-1").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))
		mock.ExpectRollback()

		err := repo.Save(ctx, e, 3)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
		assert.True(t, domain.IsRetryable(err))
		assert.Equal(t, int64(3), e.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Deleted meanwhile", func(t *testing.T) {
		repo, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE equipment SET").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT version FROM equipment").WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectRollback()

		err := repo.Save(ctx, tank(), 3)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Second open rental rejected by index", func(t *testing.T) {
		repo, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE equipment SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO rental_periods").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "rental_periods_one_open_idx"})
		mock.ExpectRollback()

		err := repo.Save(ctx, tank(), 3)
		assert.ErrorIs(t, err, domain.ErrOverlappingRental)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Commit failure", func(t *testing.T) {
		repo, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE equipment SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO rental_periods").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(errors.New("server closed the connection"))

		err := repo.Save(ctx, tank(), 3)
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})
}

func TestEquipmentRepository_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newMock(t)
		e := tank()
		e.Rentals = nil
		e.Status = domain.EquipmentStatusAvailable

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO equipment").
			WithArgs("eq-1", "center-1", sqlmock.AnyArg(), "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg(),
				true, int64(10), int64(100), int32(1), int32(0), nil, nil, "", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Create(context.Background(), e))
		assert.Equal(t, int64(1), e.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown center", func(t *testing.T) {
		repo, mock := newMock(t)
		e := tank()
		e.Rentals = nil
		e.CenterID = "nowhere"

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO equipment").
			WillReturnError(&pq.Error{Code: "23503", Constraint: "equipment_center_id_fkey"})
		mock.ExpectRollback()

		err := repo.Create(context.Background(), e)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "center nowhere")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEquipmentRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Retires the row", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM equipment (.+) FOR UPDATE").
			WithArgs("eq-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("AVAILABLE"))
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM rental_periods").
			WithArgs("eq-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec("UPDATE equipment SET deleted_on").
			WithArgs("eq-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Delete(ctx, "eq-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Open rental", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM equipment").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("RENTED"))
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM rental_periods").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err := repo.Delete(ctx, "eq-1")
		assert.ErrorIs(t, err, domain.ErrHasOpenRental)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM equipment").WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Delete(ctx, "missing"), domain.ErrNotFound)
	})
}

func TestEquipmentRepository_ListOverdueRentals(t *testing.T) {
	repo, mock := newMock(t)
	due := now.Add(-48 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM rental_periods r JOIN equipment e").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "center_id", "id", "renter_name", "renter_email", "until_date"}).
			AddRow("eq-1", "center-1", "r-1", "Jane Doe", "jane@example.com", due))

	got, err := repo.ListOverdueRentals(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.OverdueRental{
		EquipmentID: "eq-1", CenterID: "center-1", RentalID: "r-1",
		RenterName: "Jane Doe", RenterEmail: "jane@example.com", Until: due,
	}, got[0])
}

func TestEquipmentRepository_ReadSnapshot(t *testing.T) {
	ctx := context.Background()
	centerCols := []string{"id", "name", "created_on"}

	t.Run("All centers", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, created_on FROM centers ORDER BY").
			WillReturnRows(sqlmock.NewRows(centerCols).AddRow("center-1", "Blue Hole", now).AddRow("center-2", "Coral Bay", now))
		mock.ExpectQuery("SELECT (.+) FROM equipment WHERE deleted_on IS NULL ORDER BY center_id").
			WillReturnRows(addTank(addTank(equipmentRows(), "eq-1", "center-1", "AVAILABLE"), "eq-2", "center-2", "IN_USE"))
		mock.ExpectQuery("SELECT (.+) FROM rental_periods").WillReturnRows(rentalRows())
		mock.ExpectCommit()

		snap, err := repo.ReadSnapshot(ctx, "")
		require.NoError(t, err)
		assert.Len(t, snap.Centers, 2)
		assert.Len(t, snap.Equipment, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown center", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, created_on FROM centers WHERE id").
			WithArgs("nowhere").
			WillReturnRows(sqlmock.NewRows(centerCols))
		mock.ExpectRollback()

		_, err := repo.ReadSnapshot(ctx, "nowhere")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestNotificationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()
	repo := NewNotificationRepository(db)

	n := &domain.Notification{
		CenterID:    "center-1",
		EquipmentID: "eq-1",
		Kind:        domain.EventMaintenanceThreshold,
		Title:       "Maintenance threshold reached",
		Message:     "TANK SN-1 reached 80% of its usage limit",
		Attributes:  map[string]string{"threshold_percent": "80"},
		CreatedOn:   now,
	}
	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs("center-1", "eq-1", domain.EventMaintenanceThreshold, n.Title, n.Message, []byte(`{"threshold_percent":"80"}`), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, int64(7), n.ID)
}

func TestCenterRepository_Create_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()
	repo := NewCenterRepository(db)

	mock.ExpectExec("INSERT INTO centers").WillReturnError(&pq.Error{Code: "23505", Constraint: "centers_pkey"})
	err = repo.Create(context.Background(), &domain.Center{ID: "center-1", Name: "Blue Hole", CreatedOn: now})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
