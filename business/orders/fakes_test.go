package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/domain"

	"github.com/shopspring/decimal"
)

// store backs every fake repository. The fake transactor serializes units
// and restores a snapshot when one fails, which is how a rolled back
// database transaction looks from the service.
type store struct {
	mu        sync.Mutex
	products  map[uint]domain.Product
	orders    map[uint]domain.Orders
	customers map[uint]domain.Customer
	carts     map[uint]int
	nextOrder uint
}

func newStore() *store {
	return &store{
		products:  map[uint]domain.Product{},
		orders:    map[uint]domain.Orders{},
		customers: map[uint]domain.Customer{},
		carts:     map[uint]int{},
	}
}

type snapshot struct {
	products  map[uint]domain.Product
	orders    map[uint]domain.Orders
	nextOrder uint
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		products:  make(map[uint]domain.Product, len(s.products)),
		orders:    make(map[uint]domain.Orders, len(s.orders)),
		nextOrder: s.nextOrder,
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = snap.products
	s.orders = snap.orders
	s.nextOrder = snap.nextOrder
}

func (s *store) addProduct(id uint, name, price string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[id] = domain.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
		Image: "/uploads/" + name + ".png",
	}
}

func (s *store) addCustomer(id, userID uint, email string, pushToken *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers[id] = domain.Customer{
		ID:        id,
		UserID:    userID,
		FirstName: "Jane",
		LastName:  "Doe",
		PushToken: pushToken,
		User:      &domain.User{ID: userID, Email: email},
	}
}

func (s *store) stock(id uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.products[id].Stock
}

func (s *store) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.orders)
}

func (s *store) cartSize(customerID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.carts[customerID]
}

type fakeTransactor struct {
	txMu  sync.Mutex
	store *store
}

func (t *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type fakeOrdersRepo struct {
	store      *store
	createErr  error
	updateErr  error
	totals     []domain.OrderTotal
	totalsFrom time.Time
	totalsTo   time.Time
}

func (r *fakeOrdersRepo) CreateOrder(ctx context.Context, order *domain.Orders) error {
	if r.createErr != nil {
		return r.createErr
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.nextOrder++
	order.ID = r.store.nextOrder
	order.CreatedAt = time.Now().UTC()
	r.store.orders[order.ID] = *order
	return nil
}

func (r *fakeOrdersRepo) GetAllOrders(ctx context.Context) ([]domain.Orders, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	all := make([]domain.Orders, 0, len(r.store.orders))
	for id := uint(1); id <= r.store.nextOrder; id++ {
		if o, ok := r.store.orders[id]; ok {
			all = append(all, o)
		}
	}
	return all, nil
}

func (r *fakeOrdersRepo) GetOrdersByCustomer(ctx context.Context, customerID uint) ([]domain.Orders, error) {
	all, _ := r.GetAllOrders(ctx)
	mine := make([]domain.Orders, 0, len(all))
	for _, o := range all {
		if o.CustomerID == customerID {
			mine = append(mine, o)
		}
	}
	return mine, nil
}

func (r *fakeOrdersRepo) GetOrder(ctx context.Context, orderID uint) (domain.Orders, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[orderID]
	if !ok {
		return domain.Orders{}, domain.ErrOrderNotFound
	}
	if c, ok := r.store.customers[o.CustomerID]; ok {
		o.Customer = &c
	}
	return o, nil
}

func (r *fakeOrdersRepo) UpdateOrderStatus(ctx context.Context, orderID uint, from, to domain.OrderStatus) error {
	if r.updateErr != nil {
		return r.updateErr
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.OrderStatus != from {
		return domain.ErrInvalidStatusTransition
	}
	o.OrderStatus = to
	r.store.orders[orderID] = o
	return nil
}

func (r *fakeOrdersRepo) GetOrderTotals(ctx context.Context, from, to time.Time) ([]domain.OrderTotal, error) {
	r.totalsFrom, r.totalsTo = from, to

	var in []domain.OrderTotal
	for _, t := range r.totals {
		if !t.CreatedAt.Before(from) && !t.CreatedAt.After(to) {
			in = append(in, t)
		}
	}
	return in, nil
}

type fakeProductRepo struct {
	store      *store
	decrements []uint
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id uint) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *fakeProductRepo) DecrementStock(ctx context.Context, id uint, qty int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.decrements = append(r.decrements, id)

	p, ok := r.store.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock < qty {
		return &domain.StockError{ProductID: id, Requested: qty}
	}
	p.Stock -= qty
	r.store.products[id] = p
	return nil
}

type fakeCustomerRepo struct {
	store *store
}

func (r *fakeCustomerRepo) FindByUserID(ctx context.Context, userID uint) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, c := range r.store.customers {
		if c.UserID == userID {
			return c, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

type fakeCartRepo struct {
	store *store
	err   error
}

func (r *fakeCartRepo) ClearByCustomer(ctx context.Context, customerID uint) error {
	if r.err != nil {
		return r.err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.carts, customerID)
	return nil
}

type sentEmail struct {
	toName, toEmail, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *fakeMailer) SendEmail(ctx context.Context, toName, toEmail, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, sentEmail{toName, toEmail, subject, htmlBody})
	return m.err
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sent)
}

type sentPush struct {
	token, title, body string
}

type fakePusher struct {
	mu    sync.Mutex
	sent  []sentPush
	err   error
	block bool
}

func (p *fakePusher) SendPush(ctx context.Context, token, title, body string) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sent = append(p.sent, sentPush{token, title, body})
	return p.err
}

func (p *fakePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.sent)
}

var errBoom = errors.New("boom")
