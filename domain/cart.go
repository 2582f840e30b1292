package domain

import "time"

// CartItem is one row per (customer, product); the composite unique index
// is what keeps add-to-cart from producing duplicates.
type CartItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"column:customer_id;not null;uniqueIndex:idx_cart_customer_product" json:"customer_id"`
	ProductID  uint      `gorm:"column:product_id;not null;uniqueIndex:idx_cart_customer_product" json:"product_id"`
	Quantity   int       `gorm:"column:quantity;not null;check:quantity >= 1" json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
