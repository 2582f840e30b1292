package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderTotal is the slice of an order the sales report needs.
type OrderTotal struct {
	CreatedAt  time.Time
	TotalPrice decimal.Decimal
}

type MonthlySales struct {
	Month      string          `json:"month"`
	TotalSales decimal.Decimal `json:"total_sales"`
	OrderCount int             `json:"order_count"`
}
