package service

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

const (
	LabelLowStock     = "Low Stock"
	LabelHealthyStock = "Healthy Stock"

	DefaultTopN = 5
)

var requestStatusOrder = []domain.RequestStatus{
	domain.RequestStatusPending,
	domain.RequestStatusApproved,
	domain.RequestStatusDeclined,
}

var hundred = decimal.NewFromInt(100)

func StockStatusSeries(items []domain.InventoryItem) domain.Series {
	stats := ComputeInventoryStats(items)
	return withShares(domain.Series{
		Name: "Stock Status",
		Points: []domain.Point{
			{Label: LabelLowStock, Value: stats.LowStockCount},
			{Label: LabelHealthyStock, Value: stats.Total - stats.LowStockCount},
		},
	})
}

// TopQuantitySeries returns at most n items ordered by quantity, largest
// first. Items with equal quantity keep their input order.
func TopQuantitySeries(items []domain.InventoryItem, n int) domain.Series {
	series := domain.Series{Name: "Top Items by Quantity", Points: []domain.Point{}}
	if n <= 0 || len(items) == 0 {
		return series
	}

	ranked := slices.Clone(items)
	slices.SortStableFunc(ranked, func(a, b domain.InventoryItem) int {
		return b.Quantity - a.Quantity
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	series.Points = make([]domain.Point, len(ranked))
	for i, item := range ranked {
		series.Points[i] = domain.Point{Label: item.Name, Value: item.Quantity}
	}
	return withShares(series)
}

// RequestStatusSeries buckets records by status. Records with a status outside
// pending, approved and declined are not bucketed; they are counted in Ignored.
func RequestStatusSeries(records []domain.RequestRecord) domain.Series {
	counts := make(map[domain.RequestStatus]int, len(requestStatusOrder))
	ignored := 0
	for _, rec := range records {
		if !slices.Contains(requestStatusOrder, rec.Status) {
			ignored++
			continue
		}
		counts[rec.Status]++
	}

	series := domain.Series{Name: "Request Status", Ignored: ignored}
	for _, status := range requestStatusOrder {
		series.Points = append(series.Points, domain.Point{Label: string(status), Value: counts[status]})
	}
	return withShares(series)
}

func withShares(s domain.Series) domain.Series {
	total := s.Total()
	for i := range s.Points {
		if total == 0 {
			s.Points[i].Share = decimal.Zero
			continue
		}
		s.Points[i].Share = decimal.NewFromInt(int64(s.Points[i].Value)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(total))).
			Round(0)
	}
	return s
}
