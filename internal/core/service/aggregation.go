package service

import "github.com/rl1809/stockdesk/internal/core/domain"

func ComputeInventoryStats(items []domain.InventoryItem) domain.InventoryStats {
	stats := domain.InventoryStats{Total: len(items)}
	for _, item := range items {
		if item.IsLowStock() {
			stats.LowStockCount++
		}
	}
	return stats
}

// UnionByID merges request feeds into one set keyed by id. A record keeps the
// position of its first appearance; a later feed's copy replaces the content,
// so a record seen both pending and settled counts as settled.
func UnionByID(feeds ...[]domain.RequestRecord) []domain.RequestRecord {
	size := 0
	for _, feed := range feeds {
		size += len(feed)
	}

	index := make(map[int64]int, size)
	union := make([]domain.RequestRecord, 0, size)
	for _, feed := range feeds {
		for _, rec := range feed {
			if i, ok := index[rec.ID]; ok {
				union[i] = rec
				continue
			}
			index[rec.ID] = len(union)
			union = append(union, rec)
		}
	}
	return union
}

// ComputeRequestStats counts the union of the pending and history feeds.
// For a requester pass the result of ListMine as pending and nil as history.
func ComputeRequestStats(pending, history []domain.RequestRecord) domain.RequestStats {
	union := UnionByID(pending, history)
	stats := domain.RequestStats{Total: len(union)}
	for _, rec := range union {
		if rec.Status == domain.RequestStatusPending {
			stats.Pending++
		}
	}
	return stats
}
