package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/repository"
)

type centerRepository struct {
	db *sql.DB
}

func NewCenterRepository(db *sql.DB) repository.CenterRepository {
	return &centerRepository{db: db}
}

func (r *centerRepository) Create(ctx context.Context, c *domain.Center) error {
	query := `INSERT INTO centers (id, name, created_on) VALUES ($1, $2, $3)`
	logger.DatabaseCall("INSERT", "centers", "centerID", c.ID)
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.CreatedOn)
	logger.DatabaseResult("INSERT", 1, err, "centerID", c.ID)
	if isUniqueViolation(err, "") {
		return fmt.Errorf("center %s already exists: %w", c.ID, domain.ErrInvalidArgument)
	}
	return storeErr("create center", err)
}

func (r *centerRepository) GetByID(ctx context.Context, id string) (*domain.Center, error) {
	c, err := getCenter(ctx, r.db, id)
	if err != nil {
		return nil, storeErr("get center", err)
	}
	return c, nil
}

func (r *centerRepository) List(ctx context.Context) ([]domain.Center, error) {
	centers, err := listCenters(ctx, r.db)
	if err != nil {
		return nil, storeErr("list centers", err)
	}
	return centers, nil
}

func getCenter(ctx context.Context, q queryer, id string) (*domain.Center, error) {
	c := &domain.Center{}
	err := q.QueryRowContext(ctx, `SELECT id, name, created_on FROM centers WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("center %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func listCenters(ctx context.Context, q queryer) ([]domain.Center, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, created_on FROM centers ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var centers []domain.Center
	for rows.Next() {
		var c domain.Center
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedOn); err != nil {
			return nil, err
		}
		centers = append(centers, c)
	}
	return centers, rows.Err()
}
