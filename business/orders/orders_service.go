package orders

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"storefront/domain"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("storefront/business/orders")

type OrdersRepository interface {
	CreateOrder(ctx context.Context, order *domain.Orders) error
	GetAllOrders(ctx context.Context) ([]domain.Orders, error)
	GetOrdersByCustomer(ctx context.Context, customerID uint) ([]domain.Orders, error)
	GetOrder(ctx context.Context, orderID uint) (domain.Orders, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, from, to domain.OrderStatus) error
	GetOrderTotals(ctx context.Context, from, to time.Time) ([]domain.OrderTotal, error)
}

// ProductRepository is the part of the catalog an order touches.
type ProductRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Product, error)
	DecrementStock(ctx context.Context, id uint, qty int) error
}

type CustomerRepository interface {
	FindByUserID(ctx context.Context, userID uint) (domain.Customer, error)
}

type CartRepository interface {
	ClearByCustomer(ctx context.Context, customerID uint) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, htmlBody string) error
}

type PushSender interface {
	SendPush(ctx context.Context, token, title, body string) error
}

type Config struct {
	// NotificationTimeout bounds each email or push delivery.
	NotificationTimeout time.Duration
}

type OrdersService struct {
	orderRepo    OrdersRepository
	productsRepo ProductRepository
	customerRepo CustomerRepository
	cartRepo     CartRepository
	tx           Transactor
	mailer       EmailSender
	pusher       PushSender
	validate     *validator.Validate
	cfg          Config
}

func NewOrdersService(
	orderRepo OrdersRepository,
	productsRepo ProductRepository,
	customerRepo CustomerRepository,
	cartRepo CartRepository,
	tx Transactor,
	mailer EmailSender,
	pusher PushSender,
	validate *validator.Validate,
	cfg Config,
) *OrdersService {
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = 5 * time.Second
	}

	return &OrdersService{
		orderRepo:    orderRepo,
		productsRepo: productsRepo,
		customerRepo: customerRepo,
		cartRepo:     cartRepo,
		tx:           tx,
		mailer:       mailer,
		pusher:       pusher,
		validate:     validate,
		cfg:          cfg,
	}
}

type LineItemInput struct {
	ProductID uint `json:"product" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,min=1"`
}

type PlaceOrderInput struct {
	OrderItems    []LineItemInput     `json:"order_items" validate:"required,min=1,dive"`
	ShippingInfo  domain.ShippingInfo `json:"shipping_info"`
	PaymentInfo   domain.PaymentInfo  `json:"payment_info"`
	ItemsPrice    decimal.Decimal     `json:"items_price"`
	TaxPrice      decimal.Decimal     `json:"tax_price"`
	ShippingPrice decimal.Decimal     `json:"shipping_price"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
}

// PlaceOrder creates the order and decrements stock for every line item in
// one atomic unit: either the order exists and every product was
// decremented, or nothing changed. The cart is cleared after commit on a
// best-effort basis.
func (s *OrdersService) PlaceOrder(ctx context.Context, userID uint, in PlaceOrderInput) (order domain.Orders, err error) {
	ctx, span := tracer.Start(ctx, "orders.PlaceOrder")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.OrdersPlaced.WithLabelValues(placementOutcome(err)).Inc()
		}
		span.End()
	}()

	if err := s.validate.Struct(in); err != nil {
		return domain.Orders{}, domain.FromValidator(err)
	}

	totals := domain.OrderTotals{
		ItemsPrice:    in.ItemsPrice,
		TaxPrice:      in.TaxPrice,
		ShippingPrice: in.ShippingPrice,
		TotalPrice:    in.TotalPrice,
	}
	if err := validateTotals(totals); err != nil {
		return domain.Orders{}, err
	}

	customer, err := s.customerRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.Orders{}, domain.ErrCustomerMissing
		}
		logger.Error("Failed to resolve customer", err)
		return domain.Orders{}, err
	}

	items := mergeLineItems(in.OrderItems)
	span.SetAttributes(
		attribute.Int("order.customer_id", int(customer.ID)),
		attribute.Int("order.line_items", len(items)),
	)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		orderItems := make([]domain.OrderItem, 0, len(items))
		for _, item := range items {
			product, err := s.productsRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				return err
			}

			orderItems = append(orderItems, domain.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				Image:     product.Image,
				Price:     product.Price,
			})
		}

		order = domain.Orders{
			CustomerID:   customer.ID,
			ShippingInfo: in.ShippingInfo,
			PaymentInfo:  in.PaymentInfo,
			OrderTotals:  totals,
			OrderStatus:  domain.OrderStatusProcessing,
			OrderItems:   orderItems,
		}
		if err := s.orderRepo.CreateOrder(ctx, &order); err != nil {
			return err
		}

		for _, item := range lockOrder(items) {
			if err := s.productsRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			metrics.StockConflicts.Inc()
			logger.Warn("Order rejected for insufficient stock", err, "customer_id", customer.ID)
		} else {
			logger.Error("Failed to place order", err, "customer_id", customer.ID)
		}
		return domain.Orders{}, err
	}

	metrics.OrdersPlaced.WithLabelValues("placed").Inc()
	span.SetAttributes(attribute.Int("order.id", int(order.ID)))

	if err := s.cartRepo.ClearByCustomer(ctx, customer.ID); err != nil {
		metrics.CartClearFailures.Inc()
		logger.Warn("Failed to clear cart after order", err, "customer_id", customer.ID, "order_id", order.ID)
	}

	return order, nil
}

func (s *OrdersService) MyOrders(ctx context.Context, userID uint) ([]domain.Orders, error) {
	customer, err := s.customerRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil, domain.ErrCustomerMissing
		}
		return nil, err
	}

	return s.orderRepo.GetOrdersByCustomer(ctx, customer.ID)
}

// GetOrder returns the order to its owner or to an admin.
func (s *OrdersService) GetOrder(ctx context.Context, orderID, userID uint, isAdmin bool) (domain.Orders, error) {
	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Orders{}, err
	}

	if !isAdmin && (order.Customer == nil || order.Customer.UserID != userID) {
		return domain.Orders{}, domain.ErrForbidden
	}

	return order, nil
}

func (s *OrdersService) GetAllOrders(ctx context.Context) ([]domain.Orders, error) {
	return s.orderRepo.GetAllOrders(ctx)
}

// mergeLineItems folds repeated product ids into one line, keeping the
// order in which products first appear.
func mergeLineItems(items []LineItemInput) []LineItemInput {
	merged := make([]LineItemInput, 0, len(items))
	index := make(map[uint]int, len(items))

	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	return merged
}

// lockOrder returns the items by ascending product id. Every order takes
// product row locks in this order, so two orders over the same products
// cannot deadlock each other.
func lockOrder(items []LineItemInput) []LineItemInput {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b LineItemInput) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return sorted
}

func validateTotals(t domain.OrderTotals) error {
	fields := map[string]decimal.Decimal{
		"items_price":    t.ItemsPrice,
		"tax_price":      t.TaxPrice,
		"shipping_price": t.ShippingPrice,
		"total_price":    t.TotalPrice,
	}

	for _, name := range []string{"items_price", "tax_price", "shipping_price", "total_price"} {
		if fields[name].IsNegative() {
			return domain.NewValidationError(name, name+" must not be negative")
		}
	}

	return nil
}

func placementOutcome(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCustomerMissing):
		return "not_found"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "error"
	}
}
