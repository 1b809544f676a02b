package backend

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

var exportHeader = []string{"id", "name", "quantity", "description"}

type InventoryService struct {
	items    port.InventoryRepository
	requests port.RequestRepository
	events   *EventDispatcher
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewInventoryService(items port.InventoryRepository, requests port.RequestRepository, events *EventDispatcher, logger zerolog.Logger) *InventoryService {
	return &InventoryService{
		items:    items,
		requests: requests,
		events:   events,
		validate: validator.New(),
		logger:   logger.With().Str("component", "inventory").Logger(),
	}
}

func (s *InventoryService) List(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.items.ListItems(ctx)
}

func (s *InventoryService) Available(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.items.ListAvailableItems(ctx)
}

func (s *InventoryService) Create(ctx context.Context, actor domain.SessionClaims, draft domain.InventoryDraft) (domain.InventoryItem, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.InventoryItem{}, err
	}
	draft.Name = strings.TrimSpace(draft.Name)
	if err := s.validate.Struct(draft); err != nil {
		return domain.InventoryItem{}, reject(domain.ErrValidation, describeValidation(err))
	}

	existing, err := s.items.FindItemByName(ctx, draft.Name)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if existing != nil {
		return domain.InventoryItem{}, reject(domain.ErrValidation, MsgItemExists)
	}
	return s.items.CreateItem(ctx, draft)
}

func (s *InventoryService) Update(ctx context.Context, actor domain.SessionClaims, id int64, patch domain.InventoryPatch) (domain.InventoryItem, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.InventoryItem{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := s.validate.Struct(patch); err != nil {
		return domain.InventoryItem{}, reject(domain.ErrValidation, describeValidation(err))
	}

	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if item == nil {
		return domain.InventoryItem{}, reject(domain.ErrNotFound, MsgItemNotFound)
	}

	if patch.Name != nil {
		other, err := s.items.FindItemByName(ctx, *patch.Name)
		if err != nil {
			return domain.InventoryItem{}, err
		}
		if other != nil && other.ID != id {
			return domain.InventoryItem{}, reject(domain.ErrValidation, MsgItemNameTaken)
		}
	}

	updated := patch.Apply(*item)
	if err := s.items.UpdateItem(ctx, updated); err != nil {
		return domain.InventoryItem{}, err
	}
	return updated, nil
}

// Delete removes an item nobody ever requested. An item with request history
// is hidden instead, and an item with pending requests is kept.
func (s *InventoryService) Delete(ctx context.Context, actor domain.SessionClaims, id int64) (string, error) {
	if err := requireAdmin(actor); err != nil {
		return "", err
	}
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", reject(domain.ErrNotFound, MsgItemNotFound)
	}

	total, pending, err := s.requests.CountByItem(ctx, id)
	if err != nil {
		return "", err
	}
	switch {
	case total == 0:
		if err := s.items.DeleteItem(ctx, id); err != nil {
			return "", err
		}
		return "Item deleted successfully", nil
	case pending > 0:
		return "", reject(domain.ErrConflict, MsgItemHasPending)
	default:
		if err := s.items.SoftDeleteItem(ctx, id); err != nil {
			return "", err
		}
		return "Item set to deleted", nil
	}
}

// BulkImport creates each candidate independently. Duplicates and invalid
// records are reported as failures without stopping the batch.
func (s *InventoryService) BulkImport(ctx context.Context, actor domain.SessionClaims, candidates []domain.ImportCandidate) (domain.ImportResult, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.ImportResult{}, err
	}

	result := domain.ImportResult{Failures: []domain.ImportFailure{}}
	fail := func(name, reason string) {
		result.FailedImports++
		result.Failures = append(result.Failures, domain.ImportFailure{Name: name, Reason: reason})
	}

	for _, c := range candidates {
		c.Name = strings.TrimSpace(c.Name)
		if err := s.validate.Struct(c); err != nil {
			fail(c.Name, describeValidation(err))
			continue
		}

		existing, err := s.items.FindItemByName(ctx, c.Name)
		if err != nil {
			return domain.ImportResult{}, err
		}
		if existing != nil {
			fail(c.Name, MsgItemExists)
			continue
		}

		if _, err := s.items.CreateItem(ctx, domain.InventoryDraft{Name: c.Name, Quantity: c.Quantity, Description: c.Description}); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.ImportResult{}, err
			}
			fail(c.Name, err.Error())
			continue
		}
		result.SuccessfulImports++
	}

	result.Message = fmt.Sprintf("Import complete. %d items imported successfully, %d failed.", result.SuccessfulImports, result.FailedImports)
	s.logger.Info().Int("successful", result.SuccessfulImports).Int("failed", result.FailedImports).Msg("bulk import")
	if s.events != nil && result.SuccessfulImports > 0 {
		s.events.Emit(domain.EventInventoryImported, actor.Subject, int64(result.SuccessfulImports), result.Message)
	}
	return result, nil
}

func (s *InventoryService) ExportCSV(ctx context.Context) ([]byte, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, item := range items {
		record := []string{strconv.FormatInt(item.ID, 10), item.Name, strconv.Itoa(item.Quantity), item.Description}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
