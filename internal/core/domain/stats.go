package domain

import "github.com/shopspring/decimal"

type InventoryStats struct {
	Total         int `json:"total"`
	LowStockCount int `json:"low_stock_count"`
}

type RequestStats struct {
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

// Point is one labelled value of a chart series. Share is the value as a
// whole percentage of the series total.
type Point struct {
	Label string          `json:"label"`
	Value int             `json:"value"`
	Share decimal.Decimal `json:"share"`
}

// Series is a renderer-agnostic chart description. Points are in category order.
type Series struct {
	Name    string  `json:"name"`
	Points  []Point `json:"points"`
	Ignored int     `json:"ignored,omitempty"`
}

func (s Series) Categories() []string {
	labels := make([]string, len(s.Points))
	for i, p := range s.Points {
		labels[i] = p.Label
	}
	return labels
}

func (s Series) Total() int {
	total := 0
	for _, p := range s.Points {
		total += p.Value
	}
	return total
}
