package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNumberTaken = errors.New("order number already taken")
	ErrPaymentTokenSet  = errors.New("payment token already set")
)

// OrderStorage persists orders and their item snapshots. The MarkPaid and
// MarkPaymentFailed transitions are single conditional UPDATEs: the
// idempotency check and the write share one atomic statement, which is what
// makes concurrent callback/webhook delivery safe.
type OrderStorage interface {
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order, items []*models.OrderItem) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetByPaymentToken(ctx context.Context, token string) (*models.Order, error)
	GetItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	// SetPaymentToken stores the gateway token once. A second write is
	// rejected with ErrPaymentTokenSet; the token is immutable by contract.
	SetPaymentToken(ctx context.Context, orderID int64, token string) error
	// MarkPaid transitions the order to paid/confirmed unless it already is,
	// reporting whether this call performed the transition.
	MarkPaid(ctx context.Context, orderNumber string, transactionID string, paidAt time.Time) (bool, error)
	// MarkPaymentFailed transitions to failed/cancelled unless the order is
	// already failed or paid, reporting whether this call did it.
	MarkPaymentFailed(ctx context.Context, orderNumber string) (bool, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, guest_email, guest_first_name, guest_last_name, guest_phone,
billing_address, shipping_address, sub_total, shipping_cost, tax_amount, discount_amount, total_amount,
status, payment_status, shipping_status, payment_method, payment_token, payment_transaction_id, payment_date,
created_at, updated_at`

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order, items []*models.OrderItem) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, user_id, guest_email, guest_first_name, guest_last_name, guest_phone,
			billing_address, shipping_address, sub_total, shipping_cost, tax_amount, discount_amount, total_amount,
			status, payment_status, shipping_status, payment_method, payment_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, '', NOW(), NOW())
		 RETURNING id`,
		order.OrderNumber, order.UserID, order.GuestEmail, order.GuestFirstName, order.GuestLastName, order.GuestPhone,
		order.BillingAddress, order.ShippingAddress, order.SubTotal, order.ShippingCost, order.TaxAmount,
		order.DiscountAmount, order.TotalAmount, order.Status, order.PaymentStatus, order.ShippingStatus,
		order.PaymentMethod,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrOrderNumberTaken
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	order.ID = id

	for _, item := range items {
		item.OrderID = id
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, variant_id, product_name, product_code, quantity, unit_price, total_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			item.OrderID, item.ProductID, item.VariantID, item.ProductName, item.ProductCode,
			item.Quantity, item.UnitPrice, item.TotalPrice,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) getBy(ctx context.Context, clause string, arg interface{}) (*models.Order, error) {
	order := &models.Order{}
	var userID sql.NullInt64
	var paymentDate sql.NullTime
	query := fmt.Sprintf("SELECT %s FROM orders WHERE %s", orderColumns, clause)
	row := r.db.QueryRowContext(ctx, query, arg)
	if err := row.Scan(&order.ID, &order.OrderNumber, &userID, &order.GuestEmail, &order.GuestFirstName,
		&order.GuestLastName, &order.GuestPhone, &order.BillingAddress, &order.ShippingAddress,
		&order.SubTotal, &order.ShippingCost, &order.TaxAmount, &order.DiscountAmount, &order.TotalAmount,
		&order.Status, &order.PaymentStatus, &order.ShippingStatus, &order.PaymentMethod,
		&order.PaymentToken, &order.PaymentTransactionID, &paymentDate,
		&order.CreatedAt, &order.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		order.UserID = &id
	}
	if paymentDate.Valid {
		t := paymentDate.Time
		order.PaymentDate = &t
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.getBy(ctx, "order_number = $1", orderNumber)
}

func (r *orderRepository) GetByPaymentToken(ctx context.Context, token string) (*models.Order, error) {
	if token == "" {
		return nil, ErrOrderNotFound
	}
	return r.getBy(ctx, "payment_token = $1", token)
}

func (r *orderRepository) GetItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, variant_id, product_name, product_code, quantity, unit_price, total_price
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		var variantID sql.NullInt64
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &variantID, &item.ProductName,
			&item.ProductCode, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, err
		}
		if variantID.Valid {
			v := variantID.Int64
			item.VariantID = &v
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC", orderColumns)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		var uid sql.NullInt64
		var paymentDate sql.NullTime
		if err := rows.Scan(&order.ID, &order.OrderNumber, &uid, &order.GuestEmail, &order.GuestFirstName,
			&order.GuestLastName, &order.GuestPhone, &order.BillingAddress, &order.ShippingAddress,
			&order.SubTotal, &order.ShippingCost, &order.TaxAmount, &order.DiscountAmount, &order.TotalAmount,
			&order.Status, &order.PaymentStatus, &order.ShippingStatus, &order.PaymentMethod,
			&order.PaymentToken, &order.PaymentTransactionID, &paymentDate,
			&order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		if uid.Valid {
			id := uid.Int64
			order.UserID = &id
		}
		if paymentDate.Valid {
			t := paymentDate.Time
			order.PaymentDate = &t
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) SetPaymentToken(ctx context.Context, orderID int64, token string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_token = $1, payment_status = $2, updated_at = NOW()
		 WHERE id = $3 AND payment_token = ''`,
		token, models.PaymentStatusProcessing, orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentTokenSet
	}
	return nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, orderNumber string, transactionID string, paidAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2, status = $3, payment_transaction_id = $4, payment_date = $5, updated_at = NOW()
		 WHERE order_number = $1 AND payment_status <> $2`,
		orderNumber, models.PaymentStatusPaid, models.OrderStatusConfirmed, transactionID, paidAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepository) MarkPaymentFailed(ctx context.Context, orderNumber string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2, status = $3, updated_at = NOW()
		 WHERE order_number = $1 AND payment_status NOT IN ($2, $4)`,
		orderNumber, models.PaymentStatusFailed, models.OrderStatusCancelled, models.PaymentStatusPaid)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
