package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/melihmerall/ilisan-commerce/internal/config"
	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/gateway"
	"github.com/melihmerall/ilisan-commerce/internal/notify"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
	"github.com/shopspring/decimal"
)

// AddressInput is a checkout-supplied address for guest orders.
type AddressInput struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Line1     string
	Line2     string
	City      string
	District  string
	PostCode  string
	Country   string
}

func (a *AddressInput) toAddress() *models.Address {
	return &models.Address{
		Title:     "Checkout",
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Email:     a.Email,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		District:  a.District,
		PostCode:  a.PostCode,
		Country:   a.Country,
	}
}

// CheckoutInput is everything a checkout submission carries. For
// authenticated users the address ids reference saved addresses; guests
// supply address fields inline.
type CheckoutInput struct {
	Owner         models.CartOwner
	PaymentMethod models.PaymentMethod

	GuestFirstName string
	GuestLastName  string
	GuestEmail     string
	GuestPhone     string

	ShippingAddressID *int64
	BillingAddressID  *int64
	ShippingAddress   *AddressInput
	BillingAddress    *AddressInput
	// SameAsShipping reuses the shipping address for billing, skipping the
	// creation of a duplicate guest address row.
	SameAsShipping bool
}

// CheckoutOutcome is what the transport layer needs to answer a checkout:
// the persisted order and, for card payments, the hosted payment page URL.
type CheckoutOutcome struct {
	OrderID        int64
	OrderNumber    string
	TotalAmount    decimal.Decimal
	PaymentPageURL string
}

// CheckoutService converts a cart into a durable order and starts payment.
type CheckoutService interface {
	Checkout(ctx context.Context, input *CheckoutInput) (*CheckoutOutcome, error)
}

type checkoutService struct {
	log          *slog.Logger
	db           *sql.DB
	cartRepo     storage.CartStorage
	productRepo  storage.ProductStorage
	addressRepo  storage.AddressStorage
	orderRepo    storage.OrderStorage
	userRepo     storage.UserStorage
	shippingSvc  ShippingService
	gw           gateway.CheckoutGateway
	notifier     notify.Notifier
	activityRepo storage.ActivityLogStorage
	cfg          config.CheckoutConfig
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	cartRepo storage.CartStorage,
	productRepo storage.ProductStorage,
	addressRepo storage.AddressStorage,
	orderRepo storage.OrderStorage,
	userRepo storage.UserStorage,
	shippingSvc ShippingService,
	gw gateway.CheckoutGateway,
	notifier notify.Notifier,
	activityRepo storage.ActivityLogStorage,
	cfg config.CheckoutConfig,
) CheckoutService {
	return &checkoutService{
		log:          log,
		db:           db,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		addressRepo:  addressRepo,
		orderRepo:    orderRepo,
		userRepo:     userRepo,
		shippingSvc:  shippingSvc,
		gw:           gw,
		notifier:     notifier,
		activityRepo: activityRepo,
		cfg:          cfg,
	}
}

// orderNumberAttempts bounds regeneration on the unlikely unique-constraint
// collision of a generated order number.
const orderNumberAttempts = 5

func (s *checkoutService) Checkout(ctx context.Context, input *CheckoutInput) (*CheckoutOutcome, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op))

	if err := s.validate(ctx, input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The order number carries a uniqueness constraint; on a collision the
	// whole aggregate transaction is retried with a fresh number rather
	// than overwriting anything.
	var order *models.Order
	var items []*models.OrderItem
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order, items, err = s.placeOrder(ctx, input, generateOrderNumber())
		if errors.Is(err, storage.ErrOrderNumberTaken) {
			logger.Warn("order number collision, regenerating")
			continue
		}
		break
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger = logger.With(slog.String("orderNumber", order.OrderNumber))
	logger.Info("order placed", slog.String("total", order.TotalAmount.String()))
	s.audit(ctx, order, "order.created")

	outcome := &CheckoutOutcome{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
	}

	if input.PaymentMethod != models.PaymentMethodCard {
		// Notification failures never unwind the committed order.
		if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
			logger.Error("failed to send order confirmation", slog.Any("error", err))
		}
		if err := s.notifier.SendAdminOrderAlert(ctx, order); err != nil {
			logger.Error("failed to send admin alert", slog.Any("error", err))
		}
		return outcome, nil
	}

	paymentPageURL, err := s.startCardPayment(ctx, order, items)
	if err != nil {
		// The order stays behind as an audit trail of the failed attempt.
		if _, failErr := s.orderRepo.MarkPaymentFailed(ctx, order.OrderNumber); failErr != nil {
			logger.Error("failed to mark payment failed", slog.Any("error", failErr))
		}
		s.audit(ctx, order, "order.payment_init_failed")
		logger.Error("card payment initialization failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The buyer is leaving for the payment page; a clear failure here only
	// risks a stale cart, never the order.
	if err := s.clearCart(ctx, input.Owner); err != nil {
		logger.Error("failed to clear cart after payment init", slog.Any("error", err))
	}

	outcome.PaymentPageURL = paymentPageURL
	return outcome, nil
}

func (s *checkoutService) clearCart(ctx context.Context, owner models.CartOwner) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := s.cartRepo.ClearTx(ctx, tx, owner); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *checkoutService) validate(ctx context.Context, input *CheckoutInput) error {
	if !input.Owner.IsUser() && !s.cfg.GuestCheckoutEnabled {
		return ErrGuestCheckoutDisabled
	}
	switch input.PaymentMethod {
	case models.PaymentMethodCard, models.PaymentMethodBankTransfer, models.PaymentMethodCashOnDelivery:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, input.PaymentMethod)
	}
	if !input.Owner.IsUser() {
		if input.GuestFirstName == "" || input.GuestLastName == "" {
			return fmt.Errorf("%w: guest name is required", ErrValidation)
		}
		if input.GuestEmail == "" {
			return fmt.Errorf("%w: guest email is required", ErrValidation)
		}
		if input.GuestPhone == "" {
			return fmt.Errorf("%w: guest phone is required", ErrValidation)
		}
		if input.ShippingAddress == nil {
			return fmt.Errorf("%w: shipping address is required", ErrValidation)
		}
		if !input.SameAsShipping && input.BillingAddress == nil {
			return fmt.Errorf("%w: billing address is required", ErrValidation)
		}
	} else {
		if input.ShippingAddressID == nil {
			return fmt.Errorf("%w: shipping address id is required", ErrValidation)
		}
		if !input.SameAsShipping && input.BillingAddressID == nil {
			return fmt.Errorf("%w: billing address id is required", ErrValidation)
		}
	}
	return nil
}

// placeOrder runs one transaction: cart snapshot, address materialization,
// pricing, order + item persistence, and for non-card methods the cart
// clear. Any failure rolls back the whole aggregate.
func (s *checkoutService) placeOrder(ctx context.Context, input *CheckoutInput, orderNumber string) (*models.Order, []*models.OrderItem, error) {
	logger := s.log.With(slog.String("orderNumber", orderNumber))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	rollback := func() {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
	}

	lines, err := s.cartRepo.GetLinesForUpdate(ctx, tx, input.Owner)
	if err != nil {
		rollback()
		return nil, nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(lines) == 0 {
		rollback()
		return nil, nil, ErrCartEmpty
	}

	order := &models.Order{
		OrderNumber:    orderNumber,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		ShippingStatus: models.ShippingStatusPending,
		PaymentMethod:  input.PaymentMethod,
	}

	if err := s.resolveContact(ctx, input, order); err != nil {
		rollback()
		return nil, nil, err
	}
	if err := s.resolveAddresses(ctx, tx, input, order); err != nil {
		rollback()
		return nil, nil, err
	}

	items, err := s.snapshotItems(ctx, lines)
	if err != nil {
		rollback()
		return nil, nil, err
	}

	subTotal := models.CartSubtotal(lines)
	shippingCost, err := s.shippingSvc.QuoteForCart(ctx, lines)
	if err != nil {
		rollback()
		return nil, nil, fmt.Errorf("failed to quote shipping: %w", err)
	}

	order.SubTotal = subTotal
	order.ShippingCost = shippingCost
	order.TaxAmount = decimal.Zero
	order.DiscountAmount = decimal.Zero
	order.TotalAmount = subTotal.Add(shippingCost).Add(order.TaxAmount).Sub(order.DiscountAmount)

	if err := s.orderRepo.CreateOrderTx(ctx, tx, order, items); err != nil {
		rollback()
		return nil, nil, err
	}

	// The cart is destroyed on successful placement. A card order is not
	// placed until the gateway session opens, so its clear is deferred to
	// Checkout and the cart survives an initialization failure for a retry.
	if input.PaymentMethod != models.PaymentMethodCard {
		if err := s.cartRepo.ClearTx(ctx, tx, input.Owner); err != nil {
			rollback()
			return nil, nil, fmt.Errorf("failed to clear cart: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return order, items, nil
}

func (s *checkoutService) resolveContact(ctx context.Context, input *CheckoutInput, order *models.Order) error {
	if !input.Owner.IsUser() {
		order.GuestFirstName = input.GuestFirstName
		order.GuestLastName = input.GuestLastName
		order.GuestEmail = input.GuestEmail
		order.GuestPhone = input.GuestPhone
		return nil
	}
	user, err := s.userRepo.GetUserByID(ctx, input.Owner.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	order.UserID = &user.ID
	order.GuestFirstName = user.FirstName
	order.GuestLastName = user.LastName
	order.GuestEmail = user.Email
	order.GuestPhone = user.Phone
	return nil
}

// resolveAddresses copies address fields into the order as text snapshots.
// Later address edits must not mutate historical orders, so the order never
// references address rows.
func (s *checkoutService) resolveAddresses(ctx context.Context, tx *sql.Tx, input *CheckoutInput, order *models.Order) error {
	if input.Owner.IsUser() {
		shipping, err := s.addressRepo.GetByIDForUser(ctx, *input.ShippingAddressID, input.Owner.UserID)
		if err != nil {
			return fmt.Errorf("failed to get shipping address: %w", err)
		}
		order.ShippingAddress = shipping.Snapshot()
		if input.SameAsShipping {
			order.BillingAddress = order.ShippingAddress
			return nil
		}
		billing, err := s.addressRepo.GetByIDForUser(ctx, *input.BillingAddressID, input.Owner.UserID)
		if err != nil {
			return fmt.Errorf("failed to get billing address: %w", err)
		}
		order.BillingAddress = billing.Snapshot()
		return nil
	}

	shipping, err := s.addressRepo.CreateGuestTx(ctx, tx, input.ShippingAddress.toAddress())
	if err != nil {
		return err
	}
	order.ShippingAddress = shipping.Snapshot()
	if input.SameAsShipping {
		order.BillingAddress = order.ShippingAddress
		return nil
	}
	billing, err := s.addressRepo.CreateGuestTx(ctx, tx, input.BillingAddress.toAddress())
	if err != nil {
		return err
	}
	order.BillingAddress = billing.Snapshot()
	return nil
}

// snapshotItems freezes cart lines into order items: quantity and the
// add-time unit price from the line, name and code copied by value from the
// catalog.
func (s *checkoutService) snapshotItems(ctx context.Context, lines []*models.CartLine) ([]*models.OrderItem, error) {
	items := make([]*models.OrderItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.productRepo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to get product %d: %w", line.ProductID, err)
		}
		name := product.Name
		code := product.Code
		if line.VariantID != nil {
			variant, err := s.productRepo.GetVariantByID(ctx, *line.VariantID)
			if err != nil {
				return nil, fmt.Errorf("failed to get variant %d: %w", *line.VariantID, err)
			}
			if variant.Name != "" {
				name = product.Name + " - " + variant.Name
			}
			if variant.Code != "" {
				code = variant.Code
			}
		}
		items = append(items, &models.OrderItem{
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: name,
			ProductCode: code,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.LineTotal(),
		})
	}
	return items, nil
}

// startCardPayment initializes the hosted checkout session and stores the
// returned token on the order. Non-success answers are hard failures; the
// adapter never retries.
func (s *checkoutService) startCardPayment(ctx context.Context, order *models.Order, items []*models.OrderItem) (string, error) {
	req := gateway.BuildCheckoutRequest(s.log, order, items, s.cfg.Currency, s.cfg.CallbackURL)

	result, err := s.gw.InitializeCheckout(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if result.Status != gateway.StatusSuccess || result.Token == "" || result.PaymentPageURL == "" {
		return "", fmt.Errorf("%w: gateway rejected checkout: %s", ErrGateway, result.ErrorMessage)
	}

	if err := s.orderRepo.SetPaymentToken(ctx, order.ID, result.Token); err != nil {
		return "", fmt.Errorf("%w: failed to store payment token: %v", ErrGateway, err)
	}
	order.PaymentToken = result.Token
	order.PaymentStatus = models.PaymentStatusProcessing
	return result.PaymentPageURL, nil
}

func (s *checkoutService) audit(ctx context.Context, order *models.Order, action string) {
	actor := "guest"
	if order.UserID != nil {
		actor = fmt.Sprintf("user-%d", *order.UserID)
	}
	if err := s.activityRepo.Append(ctx, actor, action, order.OrderNumber); err != nil {
		s.log.Error("failed to append activity log", slog.Any("error", err))
	}
}

const orderNumberCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateOrderNumber builds a human-facing, gateway-safe order number:
// UTC timestamp plus a random suffix. Uniqueness is still enforced by the
// database; collisions force regeneration.
func generateOrderNumber() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// fall back to the timestamp alone and let the unique constraint
		// catch any duplicate.
		return "ORD-" + time.Now().UTC().Format("20060102150405")
	}
	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = orderNumberCharset[int(b)%len(orderNumberCharset)]
	}
	return "ORD-" + time.Now().UTC().Format("20060102150405") + "-" + string(suffix)
}
