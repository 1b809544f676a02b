package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

func TestFirstSuccess(t *testing.T) {
	calls := 0
	result, err := FirstSuccess(context.Background(),
		Attempt[int]{Name: "first", Run: func(context.Context) (int, error) {
			calls++
			return 0, domain.ErrServer
		}},
		Attempt[int]{Name: "second", Run: func(context.Context) (int, error) {
			calls++
			return 42, nil
		}},
		Attempt[int]{Name: "third", Run: func(context.Context) (int, error) {
			calls++
			return 7, nil
		}},
	)
	require.NoError(t, err)
	assert.Equal(t, 42, result.Value)
	assert.Equal(t, "second", result.Used)
	assert.ErrorIs(t, result.Skipped, domain.ErrServer)
	assert.Equal(t, 2, calls)
}

func TestFirstSuccess_AllFail(t *testing.T) {
	boom := errors.New("boom")
	_, err := FirstSuccess(context.Background(),
		Attempt[string]{Name: "a", Run: func(context.Context) (string, error) { return "", domain.ErrTransport }},
		Attempt[string]{Name: "b", Run: func(context.Context) (string, error) { return "", boom }},
	)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, boom)
}

func TestFirstSuccess_Empty(t *testing.T) {
	_, err := FirstSuccess[int](context.Background())
	assert.Error(t, err)
}

func TestFirstSuccess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FirstSuccess(ctx, Attempt[int]{Name: "a", Run: func(context.Context) (int, error) {
		t.Fatal("attempt must not run")
		return 0, nil
	}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExporter_CSVFallsBack(t *testing.T) {
	gw := seededGateway()
	gw.failures["export_csv"] = domain.ErrServer
	e := NewExporter(gw)

	result, err := e.CSV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local render", result.Used)
	assert.Contains(t, string(result.Value), "name,quantity,description\nPens,5,\n")
}

func TestExporter_JSONPrefersServer(t *testing.T) {
	gw := seededGateway()
	e := NewExporter(gw)

	result, err := e.JSON(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "server export", result.Used)
	assert.Len(t, result.Value, 4)
	assert.NoError(t, result.Skipped)
}
