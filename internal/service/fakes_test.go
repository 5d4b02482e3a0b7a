package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/gateway"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func variantMatches(a, b *int64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

type fakeProductRepo struct {
	products map[int64]*models.Product
	variants map[int64]*models.ProductVariant
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products: make(map[int64]*models.Product),
		variants: make(map[int64]*models.ProductVariant),
	}
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error) {
	v, ok := f.variants[id]
	if !ok {
		return nil, storage.ErrVariantNotFound
	}
	return v, nil
}

type fakeCartRepo struct {
	mu     sync.Mutex
	lines  []*models.CartLine
	nextID int64
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{nextID: 1}
}

func (f *fakeCartRepo) linesFor(owner models.CartOwner) []*models.CartLine {
	var out []*models.CartLine
	for _, l := range f.lines {
		if l.Owner == owner {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeCartRepo) GetLines(ctx context.Context, owner models.CartOwner) ([]*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linesFor(owner), nil
}

func (f *fakeCartRepo) GetLinesForUpdate(ctx context.Context, tx *sql.Tx, owner models.CartOwner) ([]*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linesFor(owner), nil
}

func (f *fakeCartRepo) AddLineTx(ctx context.Context, tx *sql.Tx, line *models.CartLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines {
		if l.Owner == line.Owner && l.ProductID == line.ProductID && variantMatches(l.VariantID, line.VariantID) {
			l.Quantity += line.Quantity
			return nil
		}
	}
	line.ID = f.nextID
	f.nextID++
	line.CreatedAt = time.Now()
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeCartRepo) RemoveLine(ctx context.Context, owner models.CartOwner, productID int64, variantID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.lines {
		if l.Owner == owner && l.ProductID == productID && variantMatches(l.VariantID, variantID) {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return nil
		}
	}
	return storage.ErrCartLineNotFound
}

func (f *fakeCartRepo) ClearTx(ctx context.Context, tx *sql.Tx, owner models.CartOwner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*models.CartLine
	for _, l := range f.lines {
		if l.Owner != owner {
			kept = append(kept, l)
		}
	}
	f.lines = kept
	return nil
}

func (f *fakeCartRepo) AddQuantityToUserLineTx(ctx context.Context, tx *sql.Tx, userID int64, productID int64, variantID *int64, quantity int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines {
		if l.Owner == models.UserOwner(userID) && l.ProductID == productID && variantMatches(l.VariantID, variantID) {
			l.Quantity += quantity
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCartRepo) RekeyLineToUserTx(ctx context.Context, tx *sql.Tx, lineID int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines {
		if l.ID == lineID {
			l.Owner = models.UserOwner(userID)
			return nil
		}
	}
	return storage.ErrCartLineNotFound
}

func (f *fakeCartRepo) DeleteLineTx(ctx context.Context, tx *sql.Tx, lineID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.lines {
		if l.ID == lineID {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return nil
		}
	}
	return storage.ErrCartLineNotFound
}

type fakeUserRepo struct {
	users map[string]*models.User // keyed by email
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrUserExists
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.Email] = user
	return user, nil
}

type fakeAddressRepo struct {
	addresses map[int64]*models.Address
	nextID    int64
}

var _ storage.AddressStorage = (*fakeAddressRepo)(nil)

func newFakeAddressRepo() *fakeAddressRepo {
	return &fakeAddressRepo{addresses: make(map[int64]*models.Address), nextID: 1}
}

func (f *fakeAddressRepo) add(addr *models.Address) *models.Address {
	addr.ID = f.nextID
	f.nextID++
	f.addresses[addr.ID] = addr
	return addr
}

func (f *fakeAddressRepo) GetByIDForUser(ctx context.Context, id int64, userID int64) (*models.Address, error) {
	addr, ok := f.addresses[id]
	if !ok || addr.UserID == nil || *addr.UserID != userID {
		return nil, storage.ErrAddressNotFound
	}
	return addr, nil
}

func (f *fakeAddressRepo) CreateGuestTx(ctx context.Context, tx *sql.Tx, addr *models.Address) (*models.Address, error) {
	return f.add(addr), nil
}

type fakeOrderRepo struct {
	mu             sync.Mutex
	orders         map[string]*models.Order // keyed by order number
	items          map[int64][]*models.OrderItem
	nextID         int64
	collisionsLeft int // forces ErrOrderNumberTaken on the next N creates
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]*models.Order),
		items:  make(map[int64][]*models.OrderItem),
		nextID: 1,
	}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order, items []*models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collisionsLeft > 0 {
		f.collisionsLeft--
		return storage.ErrOrderNumberTaken
	}
	if _, ok := f.orders[order.OrderNumber]; ok {
		return storage.ErrOrderNumberTaken
	}
	order.ID = f.nextID
	f.nextID++
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	f.orders[order.OrderNumber] = order
	for _, item := range items {
		item.OrderID = order.ID
	}
	f.items[order.ID] = items
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderNumber]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) GetByPaymentToken(ctx context.Context, token string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return nil, storage.ErrOrderNotFound
	}
	for _, o := range f.orders {
		if o.PaymentToken == token {
			return o, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) GetItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) ListByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) SetPaymentToken(ctx context.Context, orderID int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID {
			if o.PaymentToken != "" {
				return storage.ErrPaymentTokenSet
			}
			o.PaymentToken = token
			o.PaymentStatus = models.PaymentStatusProcessing
			return nil
		}
	}
	return storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) MarkPaid(ctx context.Context, orderNumber string, transactionID string, paidAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderNumber]
	if !ok || o.PaymentStatus == models.PaymentStatusPaid {
		return false, nil
	}
	o.PaymentStatus = models.PaymentStatusPaid
	o.Status = models.OrderStatusConfirmed
	o.PaymentTransactionID = transactionID
	o.PaymentDate = &paidAt
	return true, nil
}

func (f *fakeOrderRepo) MarkPaymentFailed(ctx context.Context, orderNumber string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderNumber]
	if !ok || o.PaymentStatus == models.PaymentStatusFailed || o.PaymentStatus == models.PaymentStatusPaid {
		return false, nil
	}
	o.PaymentStatus = models.PaymentStatusFailed
	o.Status = models.OrderStatusCancelled
	return true, nil
}

type fakeRateRepo struct {
	rates []*models.ShippingRate
}

var _ storage.ShippingRateStorage = (*fakeRateRepo)(nil)

func (f *fakeRateRepo) ListActive(ctx context.Context) ([]*models.ShippingRate, error) {
	return f.rates, nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	actions []string
}

var _ storage.ActivityLogStorage = (*fakeActivityRepo)(nil)

func (f *fakeActivityRepo) Append(ctx context.Context, actor string, action string, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeActivityRepo) has(action string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actions {
		if a == action {
			return true
		}
	}
	return false
}

type fakeGateway struct {
	initResult   *gateway.CheckoutResult
	initErr      error
	initRequests []*gateway.CheckoutRequest

	results     map[string]*gateway.PaymentResult // keyed by token
	retrieveErr error
}

var _ gateway.CheckoutGateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{results: make(map[string]*gateway.PaymentResult)}
}

func (f *fakeGateway) InitializeCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	f.initRequests = append(f.initRequests, req)
	if f.initErr != nil {
		return nil, f.initErr
	}
	return f.initResult, nil
}

func (f *fakeGateway) RetrieveResult(ctx context.Context, token string) (*gateway.PaymentResult, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	result, ok := f.results[token]
	if !ok {
		return &gateway.PaymentResult{Status: gateway.StatusFailure}, nil
	}
	return result, nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations int
	payments      int
	adminAlerts   int
}

func (f *fakeNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations++
	return nil
}

func (f *fakeNotifier) SendPaymentReceived(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments++
	return nil
}

func (f *fakeNotifier) SendAdminOrderAlert(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminAlerts++
	return nil
}
