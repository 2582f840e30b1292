package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CREATE TABLE public.products (
//     id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
//     name        TEXT NOT NULL,
//     description TEXT,
//     brand       TEXT,
//     category    TEXT,
//     image       TEXT,
//     price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
//     stock       BIGINT NOT NULL CHECK (stock >= 0),
//     created_at  TIMESTAMPTZ DEFAULT NOW(),
//     updated_at  TIMESTAMPTZ DEFAULT NOW()
// );

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"column:name;type:text;not null" json:"name"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Brand       string          `gorm:"column:brand;type:text" json:"brand"`
	Category    string          `gorm:"column:category;type:text" json:"category"`
	Image       string          `gorm:"column:image;type:text" json:"image"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock       int             `gorm:"column:stock;not null;default:0;check:stock >= 0" json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
