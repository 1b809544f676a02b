package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

// EncodeTabular writes items in the import format: a name,quantity,description
// header followed by one record per item. Names are written trimmed, the way
// the inventory service stores them; descriptions are written verbatim.
func EncodeTabular(items []domain.InventoryItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tabularHeader); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := w.Write([]string{strings.TrimSpace(item.Name), strconv.Itoa(item.Quantity), item.Description}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

type Exporter struct {
	gateway port.InventoryGateway
}

func NewExporter(gateway port.InventoryGateway) *Exporter {
	return &Exporter{gateway: gateway}
}

// CSV prefers the service's own export and falls back to rendering the
// current inventory listing locally.
func (e *Exporter) CSV(ctx context.Context) (FallbackResult[[]byte], error) {
	return FirstSuccess(ctx,
		Attempt[[]byte]{Name: "server export", Run: e.gateway.ExportCSV},
		Attempt[[]byte]{Name: "local render", Run: func(ctx context.Context) ([]byte, error) {
			items, err := e.gateway.ListInventory(ctx)
			if err != nil {
				return nil, err
			}
			return EncodeTabular(items)
		}},
	)
}

func (e *Exporter) JSON(ctx context.Context) (FallbackResult[[]domain.InventoryItem], error) {
	return FirstSuccess(ctx,
		Attempt[[]domain.InventoryItem]{Name: "server export", Run: e.gateway.ExportJSON},
		Attempt[[]domain.InventoryItem]{Name: "inventory listing", Run: e.gateway.ListInventory},
	)
}
