package domain

// LowStockThreshold is the quantity below which an item counts as low stock.
const LowStockThreshold = 10

type InventoryItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}

func (i InventoryItem) IsLowStock() bool {
	return i.Quantity < LowStockThreshold
}

type InventoryDraft struct {
	Name        string `json:"name" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	Description string `json:"description"`
}

// InventoryPatch carries only the fields being changed.
type InventoryPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Quantity    *int    `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Description *string `json:"description,omitempty"`
}

func (p InventoryPatch) Apply(item InventoryItem) InventoryItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	return item
}

func (p InventoryPatch) IsEmpty() bool {
	return p.Name == nil && p.Quantity == nil && p.Description == nil
}
