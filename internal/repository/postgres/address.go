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

const addressColumns = `id, customer_id, first_name, last_name, company, address_1, address_2,
	city, province, postal_code, country_code, phone, metadata,
	is_default_shipping, is_default_billing, created_at, updated_at`

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	pool database.DBTX
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool database.DBTX) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// List returns a customer's addresses in insertion order. An unknown
// customer is NotFound rather than an empty book.
func (r *AddressRepository) List(ctx context.Context, customerID string) (_ []domain.Address, err error) {
	query := `SELECT ` + addressColumns + `
		FROM addresses
		WHERE customer_id = $1
		ORDER BY created_at, id`

	ctx, end := database.TraceQuery(ctx, "ListAddresses", query)
	defer func() { end(err) }()

	addresses, err := queryAddresses(ctx, r.pool, query, customerID)
	if err != nil || len(addresses) > 0 {
		return addresses, err
	}

	var exists bool
	if err = r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, customerID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("customer", customerID)
	}
	return addresses, nil
}

// Mutate runs fn against the customer's address book under a row lock on
// the customer and persists whatever fn changed.
func (r *AddressRepository) Mutate(ctx context.Context, customerID string, fn func(*domain.AddressBook) error) (err error) {
	ctx, end := database.TraceQuery(ctx, "MutateAddressBook", "address book transaction")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("customer", customerID)
			}
			return fmt.Errorf("lock customer: %w", err)
		}

		addresses, err := queryAddresses(ctx, tx, `SELECT `+addressColumns+`
			FROM addresses
			WHERE customer_id = $1
			ORDER BY created_at, id`, customerID)
		if err != nil {
			return err
		}

		book := domain.NewAddressBook(customerID, addresses)
		if err := fn(book); err != nil {
			return err
		}

		changes := book.Changes()
		if changes.Empty() {
			return nil
		}
		if err := persistAddressChanges(ctx, tx, customerID, changes); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE customers
			SET default_shipping_address_id = $2, default_billing_address_id = $3, updated_at = NOW()
			WHERE id = $1`,
			customerID, book.DefaultShippingID(), book.DefaultBillingID(),
		)
		if err != nil {
			return fmt.Errorf("update customer default pointers: %w", err)
		}
		return nil
	})
}

// persistAddressChanges writes deletes, then updates, then inserts. Updated
// rows have their default flags cleared first so the partial unique indexes
// never see two defaults mid-transaction.
func persistAddressChanges(ctx context.Context, tx pgx.Tx, customerID string, changes domain.AddressChanges) error {
	if len(changes.Deleted) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM addresses WHERE customer_id = $1 AND id = ANY($2)`,
			customerID, changes.Deleted,
		); err != nil {
			return fmt.Errorf("delete addresses: %w", err)
		}
	}

	if len(changes.Updated) > 0 {
		ids := make([]string, len(changes.Updated))
		for i, a := range changes.Updated {
			ids[i] = a.ID
		}
		if _, err := tx.Exec(ctx, `
			UPDATE addresses SET is_default_shipping = FALSE, is_default_billing = FALSE
			WHERE customer_id = $1 AND id = ANY($2)`,
			customerID, ids,
		); err != nil {
			return fmt.Errorf("clear address defaults: %w", err)
		}
	}

	for _, a := range changes.Updated {
		metadata, err := marshalJSON(a.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE addresses SET
				first_name = $3, last_name = $4, company = $5, address_1 = $6, address_2 = $7,
				city = $8, province = $9, postal_code = $10, country_code = $11, phone = $12,
				metadata = $13, is_default_shipping = $14, is_default_billing = $15, updated_at = $16
			WHERE id = $1 AND customer_id = $2`,
			a.ID, customerID, a.FirstName, a.LastName, a.Company, a.Address1, a.Address2,
			a.City, a.Province, a.PostalCode, a.CountryCode, a.Phone,
			metadata, a.IsDefaultShipping, a.IsDefaultBilling, a.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update address %s: %w", a.ID, err)
		}
	}

	for _, a := range changes.Inserted {
		metadata, err := marshalJSON(a.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO addresses (`+addressColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			a.ID, a.CustomerID, a.FirstName, a.LastName, a.Company, a.Address1, a.Address2,
			a.City, a.Province, a.PostalCode, a.CountryCode, a.Phone,
			metadata, a.IsDefaultShipping, a.IsDefaultBilling, a.CreatedAt, a.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
	}

	return nil
}

func queryAddresses(ctx context.Context, db database.DBTX, query string, args ...any) ([]domain.Address, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]domain.Address, 0)
	for rows.Next() {
		var (
			a        domain.Address
			metadata []byte
		)
		if err := rows.Scan(
			&a.ID, &a.CustomerID, &a.FirstName, &a.LastName, &a.Company, &a.Address1, &a.Address2,
			&a.City, &a.Province, &a.PostalCode, &a.CountryCode, &a.Phone, &metadata,
			&a.IsDefaultShipping, &a.IsDefaultBilling, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		if a.Metadata, err = unmarshalJSONMap(metadata); err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address rows: %w", err)
	}
	return addresses, nil
}
