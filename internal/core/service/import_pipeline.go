package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

type ImportFormat string

const (
	FormatTabular    ImportFormat = "tabular"
	FormatStructured ImportFormat = "structured"
)

var tabularHeader = []string{"name", "quantity", "description"}

// FormatFromFilename picks the import format from a file extension.
func FormatFromFilename(name string) (ImportFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatTabular, nil
	case ".json":
		return FormatStructured, nil
	default:
		return "", fmt.Errorf("%w: please select a CSV or JSON file", domain.ErrFormat)
	}
}

// RejectedRecord is a record dropped by validation. Record numbers start at 1
// with the first data record.
type RejectedRecord struct {
	Record int
	Reason string
}

type ParseResult struct {
	Valid    []domain.ImportCandidate
	Rejected []RejectedRecord
}

type OutcomeKind int

const (
	OutcomeRejected OutcomeKind = iota
	OutcomePartial
	OutcomeComplete
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeComplete:
		return "complete"
	case OutcomePartial:
		return "partial"
	default:
		return "rejected"
	}
}

type ImportOutcome struct {
	Kind   OutcomeKind
	Result domain.ImportResult
}

// Refetch reports whether the inventory changed and views should reload.
func (o ImportOutcome) Refetch() bool {
	return o.Kind != OutcomeRejected
}

func (o ImportOutcome) Message() string {
	switch o.Kind {
	case OutcomeComplete:
		return fmt.Sprintf("Successfully imported %d items.", o.Result.SuccessfulImports)
	case OutcomePartial:
		return fmt.Sprintf("Successfully imported %d items. %d items failed.", o.Result.SuccessfulImports, o.Result.FailedImports)
	default:
		return fmt.Sprintf("Import failed. %d items could not be imported.", o.Result.FailedImports)
	}
}

// ImportPipeline turns an external payload into validated candidates and
// submits them as one best-effort batch.
type ImportPipeline struct {
	gateway  port.InventoryGateway
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewImportPipeline(gateway port.InventoryGateway, logger zerolog.Logger) *ImportPipeline {
	return &ImportPipeline{
		gateway:  gateway,
		validate: validator.New(),
		logger:   logger.With().Str("component", "import").Logger(),
	}
}

// Parse decodes payload and drops records that fail validation. It fails with
// ErrFormat when the payload itself cannot be decoded and with
// ErrNoValidRecords when nothing survives validation.
func (p *ImportPipeline) Parse(payload []byte, format ImportFormat) (ParseResult, error) {
	var (
		raw []rawRecord
		err error
	)
	switch format {
	case FormatTabular:
		raw, err = decodeTabular(payload)
	case FormatStructured:
		raw, err = decodeStructured(payload)
	default:
		err = fmt.Errorf("%w: unknown format %q", domain.ErrFormat, format)
	}
	if err != nil {
		return ParseResult{}, err
	}

	var result ParseResult
	for i, rec := range raw {
		candidate, reason := p.candidate(rec)
		if !candidate.Valid {
			result.Rejected = append(result.Rejected, RejectedRecord{Record: i + 1, Reason: reason})
			continue
		}
		result.Valid = append(result.Valid, candidate)
	}

	if len(result.Valid) == 0 {
		return result, fmt.Errorf("%w: no valid data found in the file", domain.ErrNoValidRecords)
	}
	p.logger.Debug().
		Int("valid", len(result.Valid)).
		Int("rejected", len(result.Rejected)).
		Msg("import payload parsed")
	return result, nil
}

// Submit sends the valid candidates to the inventory service. A mixed result
// is a partial success, not an error.
func (p *ImportPipeline) Submit(ctx context.Context, candidates []domain.ImportCandidate) (ImportOutcome, error) {
	batch := make([]domain.ImportCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Valid {
			batch = append(batch, c)
		}
	}
	if len(batch) == 0 {
		return ImportOutcome{}, domain.ErrNoValidRecords
	}

	result, err := p.gateway.BulkImport(ctx, batch)
	if err != nil {
		return ImportOutcome{}, fmt.Errorf("bulk import: %w", err)
	}

	outcome := ImportOutcome{Result: result}
	switch {
	case result.SuccessfulImports > 0 && result.FailedImports > 0:
		outcome.Kind = OutcomePartial
	case result.SuccessfulImports > 0:
		outcome.Kind = OutcomeComplete
	default:
		outcome.Kind = OutcomeRejected
	}

	p.logger.Info().
		Str("outcome", outcome.Kind.String()).
		Int("successful", result.SuccessfulImports).
		Int("failed", result.FailedImports).
		Msg("bulk import finished")
	return outcome, nil
}

type rawRecord struct {
	name        string
	quantity    string
	description string
	malformed   string
}

func (p *ImportPipeline) candidate(rec rawRecord) (domain.ImportCandidate, string) {
	c := domain.ImportCandidate{
		Name:        strings.TrimSpace(rec.name),
		Description: rec.description,
	}
	if rec.malformed != "" {
		return c, rec.malformed
	}

	qty, err := strconv.Atoi(strings.TrimSpace(rec.quantity))
	if err != nil {
		return c, fmt.Sprintf("quantity %q is not an integer", rec.quantity)
	}
	c.Quantity = qty

	if err := p.validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return c, fmt.Sprintf("%s failed %s", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return c, err.Error()
	}
	c.Valid = true
	return c, ""
}

func decodeTabular(payload []byte) ([]rawRecord, error) {
	payload = bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header %s", domain.ErrFormat, strings.Join(tabularHeader, ","))
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range tabularHeader[:2] {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: header must name %s", domain.ErrFormat, strings.Join(tabularHeader, ","))
		}
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []rawRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
		}
		if len(row) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", domain.ErrFormat, line, len(row), len(header))
		}
		records = append(records, rawRecord{
			name:        field(row, "name"),
			quantity:    field(row, "quantity"),
			description: field(row, "description"),
		})
	}
	return records, nil
}

func decodeStructured(payload []byte) ([]rawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the JSON array", domain.ErrFormat)
	}
	list, ok := top.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: invalid JSON format, expected an array of items", domain.ErrFormat)
	}

	records := make([]rawRecord, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			records = append(records, rawRecord{malformed: "record is not an object"})
			continue
		}

		var rec rawRecord
		switch name := obj["name"].(type) {
		case string:
			rec.name = name
		case nil:
		default:
			rec.malformed = "name is not text"
		}
		switch qty := obj["quantity"].(type) {
		case json.Number:
			rec.quantity = qty.String()
		case string:
			rec.quantity = qty
		}
		if desc, ok := obj["description"].(string); ok {
			rec.description = desc
		}
		records = append(records, rec)
	}
	return records, nil
}
