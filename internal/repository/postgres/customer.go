package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	"github.com/Astrolithia/qvtu-shopping/pkg/database"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

const customerColumns = `c.id, c.user_id, c.email, c.first_name, c.last_name, c.phone, c.avatar_url,
	c.has_account, c.default_shipping_address_id, c.default_billing_address_id,
	c.metadata, c.created_at, c.updated_at`

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	pool database.DBTX
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(pool database.DBTX) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// CreateWithAccount inserts the user account and the customer profile in a
// single transaction.
func (r *CustomerRepository) CreateWithAccount(ctx context.Context, user *domain.UserAccount, c *domain.Customer) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateCustomer", "INSERT INTO users; INSERT INTO customers")
	defer func() { end(err) }()

	metadata, err := marshalJSON(c.Metadata)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO customers (id, user_id, email, first_name, last_name, phone, avatar_url,
				has_account, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.ID, c.UserID, c.Email, c.FirstName, c.LastName, c.Phone, c.AvatarURL,
			c.HasAccount, metadata, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert customer: %w", mapUniqueViolation(err, "customer", "email", c.Email))
		}
		return nil
	})
}

// GetByID returns a customer together with its groups.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (_ *domain.Customer, err error) {
	query := `SELECT ` + customerColumns + ` FROM customers c WHERE c.id = $1`

	ctx, end := database.TraceQuery(ctx, "GetCustomer", query)
	defer func() { end(err) }()

	c, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("customer", id)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	groups, err := r.groupsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Groups = groups
	return c, nil
}

// ListByUserIDs returns the customers attached to any of userIDs. Groups are
// not loaded.
func (r *CustomerRepository) ListByUserIDs(ctx context.Context, userIDs []string) (_ []domain.Customer, err error) {
	customers := make([]domain.Customer, 0, len(userIDs))
	if len(userIDs) == 0 {
		return customers, nil
	}

	query := `SELECT ` + customerColumns + ` FROM customers c WHERE c.user_id = ANY($1::uuid[])`

	ctx, end := database.TraceQuery(ctx, "ListCustomersByUser", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list customers by user: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer rows: %w", err)
	}
	return customers, nil
}

// EmailTaken reports whether email is used by a customer other than excludeID.
func (r *CustomerRepository) EmailTaken(ctx context.Context, email, excludeID string) (_ bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM customers WHERE lower(email) = lower($1) AND id::text <> $2)`

	ctx, end := database.TraceQuery(ctx, "CustomerEmailTaken", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.pool.QueryRow(ctx, query, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check customer email: %w", err)
	}
	return exists, nil
}

// List returns a page of customers, newest first, and the total match count.
func (r *CustomerRepository) List(ctx context.Context, filter repository.CustomerFilter) (_ []domain.Customer, _ int, err error) {
	var (
		where string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = `WHERE c.first_name ILIKE $1 OR c.last_name ILIKE $1 OR c.email ILIKE $1`
		args = append(args, "%"+escapeLike(q)+"%")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM customers c
		%s
		ORDER BY c.created_at DESC, c.id
		LIMIT $%d OFFSET $%d`,
		customerColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Limit, filter.Offset)

	ctx, end := database.TraceQuery(ctx, "ListCustomers", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var total int
	customers := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customer rows: %w", err)
	}
	return customers, total, nil
}

// Update overwrites the profile fields of a customer.
func (r *CustomerRepository) Update(ctx context.Context, c *domain.Customer) (err error) {
	query := `
		UPDATE customers
		SET email = $2, first_name = $3, last_name = $4, phone = $5, avatar_url = $6,
			metadata = $7, updated_at = $8
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateCustomer", query)
	defer func() { end(err) }()

	metadata, err := marshalJSON(c.Metadata)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, query,
		c.ID, c.Email, c.FirstName, c.LastName, c.Phone, c.AvatarURL, metadata, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", mapUniqueViolation(err, "customer", "email", c.Email))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("customer", c.ID)
	}
	return nil
}

// Delete removes a customer. Addresses and memberships cascade; a customer
// with orders cannot be deleted and yields a Conflict.
func (r *CustomerRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM customers WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteCustomer", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", mapForeignKeyViolation(err, "customer has orders"))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("customer", id)
	}
	return nil
}

// ReplaceGroups replaces the membership set in one transaction. An empty
// groupIDs clears it.
func (r *CustomerRepository) ReplaceGroups(ctx context.Context, customerID string, groupIDs []string) (err error) {
	ctx, end := database.TraceQuery(ctx, "ReplaceCustomerGroups", "DELETE/INSERT customer_group_members")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("customer", customerID)
			}
			return fmt.Errorf("lock customer: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM customer_group_members WHERE customer_id = $1`, customerID); err != nil {
			return fmt.Errorf("clear customer groups: %w", err)
		}
		if len(groupIDs) == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO customer_group_members (customer_id, group_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING`,
			customerID, groupIDs,
		); err != nil {
			return fmt.Errorf("insert customer groups: %w", err)
		}
		return nil
	})
}

func (r *CustomerRepository) groupsOf(ctx context.Context, customerID string) ([]domain.CustomerGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.id, g.name, g.metadata, g.created_at, g.updated_at
		FROM customer_groups g
		JOIN customer_group_members m ON m.group_id = g.id
		WHERE m.customer_id = $1
		ORDER BY g.name`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query customer groups: %w", err)
	}
	defer rows.Close()

	groups := make([]domain.CustomerGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer group row: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer group rows: %w", err)
	}
	return groups, nil
}

// scanCustomer reads customerColumns followed by any extra destinations.
func scanCustomer(row pgx.Row, extra ...any) (*domain.Customer, error) {
	var (
		c        domain.Customer
		metadata []byte
	)
	dest := []any{
		&c.ID, &c.UserID, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.AvatarURL,
		&c.HasAccount, &c.DefaultShippingAddressID, &c.DefaultBillingAddressID,
		&metadata, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	m, err := unmarshalJSONMap(metadata)
	if err != nil {
		return nil, err
	}
	c.Metadata = m
	c.Groups = []domain.CustomerGroup{}
	return &c, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
