package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/domain"
	"storefront/pkg/logger"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// MonthlySales returns exactly twelve buckets, January to December of the
// start date's year. Months without orders are zero; aggregates of months
// outside that year are not part of the series.
func (s *OrdersService) MonthlySales(ctx context.Context, startDate, endDate string) ([]domain.MonthlySales, error) {
	startDate, endDate = strings.TrimSpace(startDate), strings.TrimSpace(endDate)

	var missing []string
	if startDate == "" {
		missing = append(missing, "startDate")
	}
	if endDate == "" {
		missing = append(missing, "endDate")
	}
	if len(missing) > 0 {
		return nil, domain.NewMissingFieldsError(missing...)
	}

	start, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		return nil, domain.NewValidationError("startDate", "startDate must be formatted as YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
	if err != nil {
		return nil, domain.NewValidationError("endDate", "endDate must be formatted as YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, domain.NewValidationError("endDate", "endDate must not be before startDate")
	}

	// inclusive of the whole end day, never past the start year
	end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	if yearEnd := time.Date(start.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond); end.After(yearEnd) {
		end = yearEnd
	}

	totals, err := s.orderRepo.GetOrderTotals(ctx, start, end)
	if err != nil {
		logger.Error("Failed to get order totals", err)
		return nil, err
	}

	return bucketByMonth(start.Year(), totals), nil
}

func bucketByMonth(year int, totals []domain.OrderTotal) []domain.MonthlySales {
	buckets := make([]domain.MonthlySales, 12)
	for i := range buckets {
		buckets[i] = domain.MonthlySales{
			Month:      fmt.Sprintf("%04d-%02d", year, i+1),
			TotalSales: decimal.Zero,
		}
	}

	for _, t := range totals {
		created := t.CreatedAt.UTC()
		if created.Year() != year {
			continue
		}
		b := &buckets[created.Month()-1]
		b.TotalSales = b.TotalSales.Add(t.TotalPrice)
		b.OrderCount++
	}

	return buckets
}
