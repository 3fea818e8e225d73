package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/pkg/database"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// GroupRepository implements repository.GroupRepository using PostgreSQL.
type GroupRepository struct {
	pool database.DBTX
}

// NewGroupRepository creates a new PostgreSQL-backed customer group repository.
func NewGroupRepository(pool database.DBTX) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// Create inserts a group. Group names are unique.
func (r *GroupRepository) Create(ctx context.Context, g *domain.CustomerGroup) (err error) {
	query := `
		INSERT INTO customer_groups (id, name, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	ctx, end := database.TraceQuery(ctx, "CreateCustomerGroup", query)
	defer func() { end(err) }()

	metadata, err := marshalJSON(g.Metadata)
	if err != nil {
		return err
	}
	if _, err = r.pool.Exec(ctx, query, g.ID, g.Name, metadata, g.CreatedAt, g.UpdatedAt); err != nil {
		return fmt.Errorf("insert customer group: %w", mapUniqueViolation(err, "customer group", "name", g.Name))
	}
	return nil
}

// GetByID returns a group.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (_ *domain.CustomerGroup, err error) {
	query := `SELECT id, name, metadata, created_at, updated_at FROM customer_groups WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetCustomerGroup", query)
	defer func() { end(err) }()

	g, err := scanGroup(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("customer group", id)
		}
		return nil, fmt.Errorf("get customer group: %w", err)
	}
	return g, nil
}

// List returns groups ordered by name and the total count.
func (r *GroupRepository) List(ctx context.Context, offset, limit int) (_ []domain.CustomerGroup, _ int, err error) {
	query := `
		SELECT id, name, metadata, created_at, updated_at, count(*) OVER() AS total_count
		FROM customer_groups
		ORDER BY name
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "ListCustomerGroups", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customer groups: %w", err)
	}
	defer rows.Close()

	var total int
	groups := make([]domain.CustomerGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer group row: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customer group rows: %w", err)
	}
	return groups, total, nil
}

// Delete removes a group and its memberships.
func (r *GroupRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM customer_groups WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteCustomerGroup", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete customer group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("customer group", id)
	}
	return nil
}

func scanGroup(row pgx.Row, extra ...any) (*domain.CustomerGroup, error) {
	var (
		g        domain.CustomerGroup
		metadata []byte
	)
	dest := []any{&g.ID, &g.Name, &metadata, &g.CreatedAt, &g.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m, err := unmarshalJSONMap(metadata)
	if err != nil {
		return nil, err
	}
	g.Metadata = m
	return &g, nil
}
