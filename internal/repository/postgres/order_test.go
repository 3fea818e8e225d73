package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

var orderCols = []string{
	"id", "order_number", "customer_id", "email", "status", "currency",
	"shipping_price", "tax_total", "discount_total", "subtotal", "total",
	"shipping_address", "billing_address", "metadata", "canceled_at",
	"created_at", "updated_at", "items",
}

const itemsJSON = `[
	{"id":"item-1","order_id":"order-1","title":"Tea","unit_price":10.0000,"quantity":3,
	 "fulfilled_quantity":0,"shipped_quantity":0,"returned_quantity":0,"metadata":null,
	 "created_at":"2026-10-15T08:00:00+00:00","updated_at":"2026-10-15T08:00:00+00:00"},
	{"id":"item-2","order_id":"order-1","title":"Cup","unit_price":5.5000,"quantity":2,
	 "fulfilled_quantity":1,"shipped_quantity":1,"returned_quantity":0,"metadata":{"color":"blue"},
	 "created_at":"2026-10-15T08:00:00+00:00","updated_at":"2026-10-15T08:00:00+00:00"}
]`

func orderRow(mock pgxmock.PgxPoolIface, items string, extra ...any) *pgxmock.Rows {
	cols := orderCols
	if len(extra) > 0 {
		cols = append(append([]string{}, orderCols...), "total_count")
	}
	values := []any{
		"order-1", "ORD-20261015-ABCDEF12", "cust-1", "li.wei@example.com", "PENDING", "CNY",
		"5.0000", "3.0000", nil, "41.0000", "49.0000",
		[]byte(`{"id":"a1","city":"Shanghai","country_code":"CN"}`), []byte(nil), []byte(nil), nil,
		fixedTime, fixedTime, []byte(items),
	}
	return mock.NewRows(cols).AddRow(append(values, extra...)...)
}

func sampleOrder() *domain.Order {
	o := &domain.Order{
		ID: "order-1", OrderNumber: "ORD-20261015-ABCDEF12", CustomerID: "cust-1",
		Email: "li.wei@example.com", Status: domain.OrderStatusPending, Currency: "CNY",
		CreatedAt: fixedTime, UpdatedAt: fixedTime,
		Items: []domain.OrderItem{
			{ID: "item-1", OrderID: "order-1", Title: "Tea", UnitPrice: decimal.RequireFromString("10"), Quantity: 3,
				CreatedAt: fixedTime, UpdatedAt: fixedTime},
		},
	}
	o.Recalculate()
	return o
}

func TestOrderRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs("order-1", o.OrderNumber, "cust-1", o.Email, "PENDING", "CNY",
			o.ShippingPrice, o.TaxTotal, o.DiscountTotal, o.Subtotal, o.Total,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), fixedTime, fixedTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs("item-1", "order-1", "", "", "Tea", "", o.Items[0].UnitPrice,
			3, 0, 0, 0, pgxmock.AnyArg(), fixedTime, fixedTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), o))
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("JSONB_AGG").
		WithArgs("order-1").
		WillReturnRows(orderRow(mock, itemsJSON))

	o, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.True(t, o.ShippingPrice.Valid)
	assert.False(t, o.DiscountTotal.Valid)
	assert.True(t, decimal.RequireFromString("41").Equal(o.Subtotal))
	require.NotNil(t, o.ShippingAddress)
	assert.Equal(t, "Shanghai", o.ShippingAddress.City)
	assert.Nil(t, o.BillingAddress)

	require.Len(t, o.Items, 2)
	assert.True(t, decimal.RequireFromString("5.5").Equal(o.Items[1].UnitPrice))
	assert.Equal(t, "blue", o.Items[1].Metadata["color"])
	assert.True(t, domain.Subtotal(o.Items).Equal(o.Subtotal))
}

func TestOrderRepository_GetByIDDerivesTotalsFromItems(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	// Stored columns disagree with the items: 4.99 against 1000 x 0.0050.
	items := `[{"id":"item-1","order_id":"order-1","title":"Pin","unit_price":0.0050,"quantity":1000,
		"fulfilled_quantity":0,"shipped_quantity":0,"returned_quantity":0,"metadata":null,
		"created_at":"2026-10-15T08:00:00+00:00","updated_at":"2026-10-15T08:00:00+00:00"}]`
	row := mock.NewRows(orderCols).AddRow(
		"order-1", "ORD-20261015-ABCDEF12", "cust-1", "li.wei@example.com", "PENDING", "CNY",
		nil, nil, "1.0000", "4.9900", "3.9900",
		[]byte(nil), []byte(nil), []byte(nil), nil,
		fixedTime, fixedTime, []byte(items),
	)
	mock.ExpectQuery("JSONB_AGG").WithArgs("order-1").WillReturnRows(row)

	o, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "5.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "4.00", o.Total.StringFixed(2))
	assert.True(t, domain.LineSubtotal(o.Items[0]).Equal(o.Subtotal))
}

func TestOrderRepository_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("JSONB_AGG").
		WithArgs("ghost").
		WillReturnRows(mock.NewRows(orderCols))

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_ListFilters(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	status := domain.OrderStatusPending
	mock.ExpectQuery("o.customer_id = .+ AND o.status = ").
		WithArgs("cust-1", "PENDING", 20, 0).
		WillReturnRows(orderRow(mock, `[]`, 1))

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{
		CustomerID: ptr("cust-1"), Status: &status, Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Empty(t, orders[0].Items)
}

func TestOrderRepository_MutateRewritesItems(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id = .+ FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("order-1"))
	mock.ExpectQuery("JSONB_AGG").
		WithArgs("order-1").
		WillReturnRows(orderRow(mock, itemsJSON))
	mock.ExpectExec("UPDATE orders SET").
		WithArgs("order-1", "li.wei@example.com", "PENDING", "CNY",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM order_items").
		WithArgs("order-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs("item-2", "order-1", "", "", "Cup", "", pgxmock.AnyArg(),
			2, 1, 1, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	o, err := repo.Mutate(context.Background(), "order-1", func(o *domain.Order) error {
		return o.RemoveItem("item-1", fixedTime)
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("11").Equal(o.Subtotal), o.Subtotal.String())
	assert.True(t, decimal.RequireFromString("19").Equal(o.Total), o.Total.String())
}

func TestOrderRepository_MutateNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("ghost").
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), "ghost", func(*domain.Order) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_MutateValidationRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("order-1"))
	mock.ExpectQuery("JSONB_AGG").
		WithArgs("order-1").
		WillReturnRows(orderRow(mock, itemsJSON))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), "order-1", func(o *domain.Order) error {
		return o.SetStatus("BOGUS", fixedTime)
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
