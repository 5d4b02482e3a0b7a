package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGetUserByEmail_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "email", "pass_hash", "first_name", "last_name", "phone", "created_at"}).
		AddRow(int64(1), "ada@example.com", []byte("hashed"), "Ada", "Yilmaz", "+905551112233", time.Now())
	mock.ExpectQuery("SELECT id, email, pass_hash, first_name, last_name, phone, created_at FROM users WHERE email = \\$1").
		WithArgs("ada@example.com").WillReturnRows(rows)

	user, err := repo.GetUserByEmail(ctx, "ada@example.com")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "Ada", user.FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "pass_hash", "first_name", "last_name", "phone", "created_at"})
	mock.ExpectQuery("SELECT id, email, pass_hash, first_name, last_name, phone, created_at FROM users WHERE email = \\$1").
		WithArgs("ghost@example.com").WillReturnRows(rows)

	_, err = repo.GetUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ada@example.com", []byte("hashed"), "Ada", "Yilmaz", "+905551112233").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err = repo.CreateUser(context.Background(), &models.User{
		Email: "ada@example.com", PassHash: []byte("hashed"),
		FirstName: "Ada", LastName: "Yilmaz", Phone: "+905551112233",
	})
	assert.ErrorIs(t, err, storage.ErrUserExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddLineTx_InsertWhenNoExistingLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	// the update matches nothing, so the insert runs
	mock.ExpectExec("UPDATE cart_items SET quantity").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO cart_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	assert.NoError(t, err)

	line := &models.CartLine{
		Owner:     models.SessionOwner("sess-1"),
		ProductID: 1,
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(100),
	}
	assert.NoError(t, repo.AddLineTx(ctx, tx, line))
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddLineTx_UpdateExistingLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cart_items SET quantity").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	assert.NoError(t, err)

	line := &models.CartLine{
		Owner:     models.UserOwner(7),
		ProductID: 1,
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(100),
	}
	assert.NoError(t, repo.AddLineTx(ctx, tx, line))
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderTx_OrderNumberCollision(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	tx, err := db.Begin()
	assert.NoError(t, err)

	order := &models.Order{
		OrderNumber:    "ORD-TAKEN",
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		ShippingStatus: models.ShippingStatusPending,
		PaymentMethod:  models.PaymentMethodCard,
	}
	err = repo.CreateOrderTx(ctx, tx, order, nil)
	assert.ErrorIs(t, err, storage.ErrOrderNumberTaken)
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByPaymentToken_EmptyTokenNeverQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)

	// no expectations: the empty token short-circuits before any SQL
	_, err = repo.GetByPaymentToken(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaymentToken_SecondWriteRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE orders SET payment_token").
		WithArgs("tok-1", string(models.PaymentStatusProcessing), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.SetPaymentToken(ctx, 1, "tok-1"))

	// the guard `payment_token = ''` matches nothing the second time
	mock.ExpectExec("UPDATE orders SET payment_token").
		WithArgs("tok-2", string(models.PaymentStatusProcessing), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetPaymentToken(ctx, 1, "tok-2"), storage.ErrPaymentTokenSet)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaid_TransitionReported(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()
	paidAt := time.Now().UTC()

	mock.ExpectExec("UPDATE orders SET payment_status").
		WithArgs("ORD-1", string(models.PaymentStatusPaid), string(models.OrderStatusConfirmed), "pay-1", paidAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	transitioned, err := repo.MarkPaid(ctx, "ORD-1", "pay-1", paidAt)
	assert.NoError(t, err)
	assert.True(t, transitioned)

	// duplicate delivery: the conditional update matches zero rows
	mock.ExpectExec("UPDATE orders SET payment_status").
		WithArgs("ORD-1", string(models.PaymentStatusPaid), string(models.OrderStatusConfirmed), "pay-1", paidAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	transitioned, err = repo.MarkPaid(ctx, "ORD-1", "pay-1", paidAt)
	assert.NoError(t, err)
	assert.False(t, transitioned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaymentFailed_TransitionReported(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE orders SET payment_status").
		WithArgs("ORD-1", string(models.PaymentStatusFailed), string(models.OrderStatusCancelled), string(models.PaymentStatusPaid)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	transitioned, err := repo.MarkPaymentFailed(ctx, "ORD-1")
	assert.NoError(t, err)
	assert.True(t, transitioned)

	mock.ExpectExec("UPDATE orders SET payment_status").
		WithArgs("ORD-1", string(models.PaymentStatusFailed), string(models.OrderStatusCancelled), string(models.PaymentStatusPaid)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	transitioned, err = repo.MarkPaymentFailed(ctx, "ORD-1")
	assert.NoError(t, err)
	assert.False(t, transitioned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByOrderNumber_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "order_number", "user_id", "guest_email", "guest_first_name", "guest_last_name", "guest_phone",
		"billing_address", "shipping_address", "sub_total", "shipping_cost", "tax_amount", "discount_amount",
		"total_amount", "status", "payment_status", "shipping_status", "payment_method", "payment_token",
		"payment_transaction_id", "payment_date", "created_at", "updated_at",
	}).AddRow(
		int64(1), "ORD-1", nil, "ada@example.com", "Ada", "Yilmaz", "+905551112233",
		"addr", "addr", "800", "29.90", "0", "0",
		"829.90", "pending", "processing", "pending", "card", "tok-1",
		"", nil, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE order_number = \\$1").
		WithArgs("ORD-1").WillReturnRows(rows)

	order, err := repo.GetByOrderNumber(context.Background(), "ORD-1")
	assert.NoError(t, err)
	assert.Equal(t, "ORD-1", order.OrderNumber)
	assert.Nil(t, order.UserID)
	assert.Nil(t, order.PaymentDate)
	assert.Equal(t, models.PaymentStatusProcessing, order.PaymentStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("829.90")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActive_NoRates(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewShippingRateRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "min_desi", "max_desi", "cost", "free_threshold", "is_default", "is_active"})
	mock.ExpectQuery("SELECT (.+) FROM shipping_rates WHERE is_active").
		WillReturnRows(rows)

	rates, err := repo.ListActive(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoShippingRates)
	assert.Empty(t, rates)
	assert.NoError(t, mock.ExpectationsWereMet())
}
