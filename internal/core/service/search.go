package service

import (
	"strings"
	"unicode/utf8"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

const (
	TypeaheadLimit     = 5
	minSearchTermRunes = 2
)

// SearchInventory returns up to limit items whose name contains term, ignoring
// case. A limit of zero or less means no limit.
func SearchInventory(items []domain.InventoryItem, term string, limit int) []domain.InventoryItem {
	term = strings.ToLower(strings.TrimSpace(term))
	if utf8.RuneCountInString(term) < minSearchTermRunes {
		return nil
	}

	var matches []domain.InventoryItem
	for _, item := range items {
		if !strings.Contains(strings.ToLower(item.Name), term) {
			continue
		}
		matches = append(matches, item)
		if limit > 0 && len(matches) == limit {
			break
		}
	}
	return matches
}
