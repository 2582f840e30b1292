package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// OrderStatusTransitions is the complete transition table. Forward jumps are
// allowed so an admin can skip steps (Processing -> Completed), and Cancelled
// is reachable from every non-terminal status. Backward moves such as
// Shipped -> Processing are not transitions; a mistaken status is corrected
// by moving forward or cancelling. Terminal statuses have no exits.
var OrderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusDelivered:  {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := OrderStatusTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	next, ok := OrderStatusTransitions[s]
	return ok && len(next) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range OrderStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

type ShippingInfo struct {
	Address     string `gorm:"column:address" json:"address" validate:"required"`
	City        string `gorm:"column:city" json:"city" validate:"required"`
	PostalCode  string `gorm:"column:postal_code" json:"postal_code" validate:"required"`
	Country     string `gorm:"column:country" json:"country" validate:"required"`
	PhoneNumber string `gorm:"column:phone_number" json:"phone_number"`
}

// PaymentInfo is stored as the client sent it; nothing here is processed.
type PaymentInfo struct {
	TransactionID string `gorm:"column:transaction_id" json:"transaction_id"`
	Status        string `gorm:"column:status" json:"status"`
	Method        string `gorm:"column:method" json:"method"`
	PaidAt        string `gorm:"column:paid_at" json:"paid_at"`
}

type OrderTotals struct {
	ItemsPrice    decimal.Decimal `gorm:"column:items_price;type:numeric(12,2);not null" json:"items_price"`
	TaxPrice      decimal.Decimal `gorm:"column:tax_price;type:numeric(12,2);not null" json:"tax_price"`
	ShippingPrice decimal.Decimal `gorm:"column:shipping_price;type:numeric(12,2);not null" json:"shipping_price"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null" json:"total_price"`
}

type Orders struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	CustomerID   uint         `gorm:"column:customer_id;not null;index" json:"customer_id"`
	ShippingInfo ShippingInfo `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_info"`
	PaymentInfo  PaymentInfo  `gorm:"embedded;embeddedPrefix:payment_" json:"payment_info"`
	OrderTotals  `gorm:"embedded"`
	OrderStatus  OrderStatus `gorm:"column:order_status;type:varchar(20);not null;index" json:"order_status"`
	CreatedAt    time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items"`
	Customer   *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

func (Orders) TableName() string {
	return "orders"
}

// OrderItem is the line-item snapshot taken at placement time. ProductID is
// a reference only; name, price and image are never re-read from Product.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	OrderID   uint            `gorm:"column:order_id;not null;index" json:"-"`
	ProductID uint            `gorm:"column:product_id;not null;index" json:"product"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	Image     string          `gorm:"column:image" json:"image"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
