package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	"github.com/Astrolithia/qvtu-shopping/pkg/database"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// orderSelect loads orders with their items aggregated into one JSONB
// column, so a page of orders costs a single query.
const orderSelect = `
	SELECT
		o.id, o.order_number, o.customer_id, o.email, o.status, o.currency,
		o.shipping_price, o.tax_total, o.discount_total, o.subtotal, o.total,
		o.shipping_address, o.billing_address, o.metadata, o.canceled_at,
		o.created_at, o.updated_at,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', oi.id,
					'order_id', oi.order_id,
					'product_id', oi.product_id,
					'variant_id', oi.variant_id,
					'title', oi.title,
					'sku', oi.sku,
					'unit_price', oi.unit_price,
					'quantity', oi.quantity,
					'fulfilled_quantity', oi.fulfilled_quantity,
					'shipped_quantity', oi.shipped_quantity,
					'returned_quantity', oi.returned_quantity,
					'metadata', oi.metadata,
					'created_at', oi.created_at,
					'updated_at', oi.updated_at
				) ORDER BY oi.created_at, oi.id
			) FILTER (WHERE oi.id IS NOT NULL),
			'[]'::jsonb
		) AS items`

const orderGroupBy = `GROUP BY o.id`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts an order and its items atomically.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", "INSERT INTO orders; INSERT INTO order_items")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		shipping, billing, metadata, err := orderJSON(o)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO orders (id, order_number, customer_id, email, status, currency,
				shipping_price, tax_total, discount_total, subtotal, total,
				shipping_address, billing_address, metadata, canceled_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			o.ID, o.OrderNumber, o.CustomerID, o.Email, string(o.Status), o.Currency,
			o.ShippingPrice, o.TaxTotal, o.DiscountTotal, o.Subtotal, o.Total,
			shipping, billing, metadata, o.CanceledAt, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", mapUniqueViolation(err, "order", "order_number", o.OrderNumber))
		}

		return insertOrderItems(ctx, tx, o.Items)
	})
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	query := orderSelect + `
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE o.id = $1
		` + orderGroupBy

	ctx, end := database.TraceQuery(ctx, "GetOrder", query)
	defer func() { end(err) }()

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns a page of orders, newest first, and the total match count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) (_ []domain.Order, _ int, err error) {
	var (
		conditions []string
		args       []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`%s, count(*) OVER() AS total_count
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		%s
		%s
		ORDER BY o.created_at DESC, o.id
		LIMIT $%d OFFSET $%d`,
		orderSelect, where, orderGroupBy, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Limit, filter.Offset)

	ctx, end := database.TraceQuery(ctx, "ListOrders", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var total int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, total, nil
}

// Mutate locks the order, applies fn and writes the order and its items back.
func (r *OrderRepository) Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (_ *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, "MutateOrder", "order transaction")
	defer func() { end(err) }()

	var result *domain.Order
	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("order", id)
			}
			return fmt.Errorf("lock order: %w", err)
		}

		o, err := scanOrder(tx.QueryRow(ctx, orderSelect+`
			FROM orders o
			LEFT JOIN order_items oi ON oi.order_id = o.id
			WHERE o.id = $1
			`+orderGroupBy, id))
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}

		if err := fn(o); err != nil {
			return err
		}

		shipping, billing, metadata, err := orderJSON(o)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET
				email = $2, status = $3, currency = $4,
				shipping_price = $5, tax_total = $6, discount_total = $7, subtotal = $8, total = $9,
				shipping_address = $10, billing_address = $11, metadata = $12, canceled_at = $13, updated_at = $14
			WHERE id = $1`,
			o.ID, o.Email, string(o.Status), o.Currency,
			o.ShippingPrice, o.TaxTotal, o.DiscountTotal, o.Subtotal, o.Total,
			shipping, billing, metadata, o.CanceledAt, o.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("clear order items: %w", err)
		}
		if err := insertOrderItems(ctx, tx, o.Items); err != nil {
			return err
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func insertOrderItems(ctx context.Context, tx pgx.Tx, items []domain.OrderItem) error {
	for _, item := range items {
		metadata, err := marshalJSON(item.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant_id, title, sku, unit_price,
				quantity, fulfilled_quantity, shipped_quantity, returned_quantity, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			item.ID, item.OrderID, item.ProductID, item.VariantID, item.Title, item.SKU, item.UnitPrice,
			item.Quantity, item.FulfilledQuantity, item.ShippedQuantity, item.ReturnedQuantity,
			metadata, item.CreatedAt, item.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func orderJSON(o *domain.Order) (shipping, billing, metadata []byte, err error) {
	if shipping, err = marshalJSON(o.ShippingAddress); err != nil {
		return nil, nil, nil, err
	}
	if billing, err = marshalJSON(o.BillingAddress); err != nil {
		return nil, nil, nil, err
	}
	if metadata, err = marshalJSON(o.Metadata); err != nil {
		return nil, nil, nil, err
	}
	return shipping, billing, metadata, nil
}

// scanOrder reads the orderSelect columns followed by any extra destinations.
func scanOrder(row pgx.Row, extra ...any) (*domain.Order, error) {
	var (
		o                 domain.Order
		status            string
		shipping, billing []byte
		metadata, items   []byte
	)
	dest := []any{
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.Email, &status, &o.Currency,
		&o.ShippingPrice, &o.TaxTotal, &o.DiscountTotal, &o.Subtotal, &o.Total,
		&shipping, &billing, &metadata, &o.CanceledAt,
		&o.CreatedAt, &o.UpdatedAt, &items,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)

	var err error
	if o.ShippingAddress, err = unmarshalAddress(shipping); err != nil {
		return nil, err
	}
	if o.BillingAddress, err = unmarshalAddress(billing); err != nil {
		return nil, err
	}
	if o.Metadata, err = unmarshalJSONMap(metadata); err != nil {
		return nil, err
	}

	o.Items = []domain.OrderItem{}
	if len(items) > 0 && string(items) != "null" {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}

	// The stored subtotal and total are a cache for queries; reads derive
	// them from the loaded items and adjustments.
	o.Recalculate()
	return &o, nil
}

func unmarshalAddress(data []byte) (*domain.Address, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var a domain.Address
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal address snapshot: %w", err)
	}
	return &a, nil
}
