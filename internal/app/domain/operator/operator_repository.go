package operator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visitops/fieldtrack/internal/app/models"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Operator, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Operator, error)
	List(ctx context.Context, page, limit int) ([]models.Operator, int, error)
	Create(ctx context.Context, op *models.Operator) error
	Update(ctx context.Context, op *models.Operator) error
	// Delete removes the operator; its sessions go with it (cascade).
	Delete(ctx context.Context, id uuid.UUID) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

var _ Repository = (*RepositoryImpl)(nil)

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const operatorColumns = `
	id, name, address, contact_person, phone, latitude, longitude,
	assigned_agent_id, last_visit_at, created_at, updated_at`

func scanOperator(row pgx.Row) (*models.Operator, error) {
	var op models.Operator
	var assigned *uuid.UUID
	err := row.Scan(
		&op.ID, &op.Name, &op.Address, &op.ContactPerson, &op.Phone,
		&op.Latitude, &op.Longitude, &assigned, &op.LastVisitAt,
		&op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assigned != nil {
		op.AssignedAgentID = *assigned
	}
	return &op, nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	row := r.db.QueryRow(ctx, `SELECT `+operatorColumns+` FROM operators WHERE id = $1`, id)
	op, err := scanOperator(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query operator: %w", err)
	}
	return op, nil
}

func (r *RepositoryImpl) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Operator, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+operatorColumns+`
		FROM operators
		WHERE assigned_agent_id = $1
		ORDER BY name`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query operators by agent: %w", err)
	}
	defer rows.Close()

	return collectOperators(rows)
}

func (r *RepositoryImpl) List(ctx context.Context, page, limit int) ([]models.Operator, int, error) {
	offset := (page - 1) * limit
	rows, err := r.db.Query(ctx, `
		SELECT `+operatorColumns+`
		FROM operators
		ORDER BY name
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query operators: %w", err)
	}
	defer rows.Close()

	operators, err := collectOperators(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM operators`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count operators: %w", err)
	}
	return operators, total, nil
}

func collectOperators(rows pgx.Rows) ([]models.Operator, error) {
	var operators []models.Operator
	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operator row: %w", err)
		}
		operators = append(operators, *op)
	}
	return operators, rows.Err()
}

func (r *RepositoryImpl) Create(ctx context.Context, op *models.Operator) error {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	now := time.Now()
	op.CreatedAt = now
	op.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO operators (id, name, address, contact_person, phone, latitude, longitude, assigned_agent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		op.ID, op.Name, op.Address, op.ContactPerson, op.Phone,
		op.Latitude, op.Longitude, op.AssignedAgentID, op.CreatedAt, op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert operator: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) Update(ctx context.Context, op *models.Operator) error {
	op.UpdatedAt = time.Now()
	tag, err := r.db.Exec(ctx, `
		UPDATE operators
		SET name = $2, address = $3, contact_person = $4, phone = $5,
		    latitude = $6, longitude = $7, assigned_agent_id = $8, updated_at = $9
		WHERE id = $1`,
		op.ID, op.Name, op.Address, op.ContactPerson, op.Phone,
		op.Latitude, op.Longitude, op.AssignedAgentID, op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update operator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM operators WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete operator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
