package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", domain.ErrUnauthorized
	}
	return string(s), nil
}

func newTestGateway(t *testing.T, h http.Handler) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPGateway(SingleHost(srv.URL), staticToken("tok-1"), zerolog.Nop())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func TestListInventory_SendsHeaders(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inventory", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_ = json.NewEncoder(w).Encode([]domain.InventoryItem{{ID: 1, Name: "Pens", Quantity: 4}})
	}))

	items, err := gw.ListInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Pens", items[0].Name)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, domain.ErrForbidden},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"validation", http.StatusUnprocessableEntity, domain.ErrValidation},
		{"server", http.StatusBadGateway, domain.ErrServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeDetail(w, tc.status, "nope")
			}))

			_, err := gw.ListPending(context.Background())
			assert.ErrorIs(t, err, tc.want)

			var remote *domain.RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Equal(t, tc.status, remote.StatusCode)
			assert.Equal(t, "nope", remote.Detail)
		})
	}
}

func TestDeleteInventory_ConflictKeepsDetail(t *testing.T) {
	const detail = "Cannot delete item: Pending requests must be handled first"
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/inventory/3", r.URL.Path)
		writeDetail(w, http.StatusBadRequest, detail)
	}))

	err := gw.DeleteInventory(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrConflict)

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, detail, conflict.Detail)
}

func TestTransitionRequest_AlreadyProcessed(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/requests/7/accept", r.URL.Path)
		writeDetail(w, http.StatusConflict, "Request already processed")
	}))

	err := gw.TransitionRequest(context.Background(), 7, domain.ActionAccept)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	err = gw.TransitionRequest(context.Background(), 7, domain.ActionCancel)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransitionRequest_StockRefusalIsNotTerminal(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusUnprocessableEntity, "Not enough stock to approve request")
	}))

	err := gw.TransitionRequest(context.Background(), 7, domain.ActionAccept)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.NotErrorIs(t, err, domain.ErrInvalidTransition)

	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "Not enough stock to approve request", remote.Detail)
}

func TestTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	gw := NewHTTPGateway(SingleHost(base), staticToken("tok"), zerolog.Nop())
	_, err := gw.ListInventory(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, IsTransport(err))
}

func TestCancelledContext(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := gw.ListHistory(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMissingCredential(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(SingleHost(srv.URL), staticToken(""), zerolog.Nop())
	_, err := gw.ListMine(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Zero(t, hits.Load())
}

func TestConcurrentGetsShareRoundTrip(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode([]domain.InventoryItem{{ID: 1, Name: "Pens"}})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := gw.ListAvailable(context.Background())
			assert.NoError(t, err)
			assert.Len(t, items, 1)
		}()
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestSharedGetSurvivesOtherCallerCancel(t *testing.T) {
	var hits atomic.Int32
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode([]domain.InventoryItem{{ID: 1, Name: "Pens"}})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := gw.ListInventory(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() {
		items, err := gw.ListInventory(context.Background())
		if err == nil && len(items) != 1 {
			err = fmt.Errorf("got %d items", len(items))
		}
		second <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)
	assert.NoError(t, <-second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLogin(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/token", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "secret" {
			writeDetail(w, http.StatusUnauthorized, "Could not validate user.")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "abc", "token_type": "bearer"})
	}))

	token, err := gw.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = gw.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestBulkImport(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Items []map[string]any `json:"items"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if !assert.Len(t, body.Items, 2) {
			return
		}
		_, hasValid := body.Items[0]["Valid"]
		assert.False(t, hasValid)
		_ = json.NewEncoder(w).Encode(domain.ImportResult{SuccessfulImports: 1, FailedImports: 1})
	}))

	result, err := gw.BulkImport(context.Background(), []domain.ImportCandidate{
		{Name: "Pens", Quantity: 1, Valid: true},
		{Name: "Tape", Quantity: 2, Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessfulImports)
	assert.Equal(t, 1, result.FailedImports)
}

func TestExtractDetail(t *testing.T) {
	assert.Equal(t, "boom", extractDetail([]byte(`{"detail":"boom"}`)))
	assert.Equal(t, "hi", extractDetail([]byte(`{"message":"hi"}`)))
	assert.Equal(t, "plain text", extractDetail([]byte("plain text\n")))
	assert.Contains(t, extractDetail([]byte(`{"detail":[{"msg":"field required"}]}`)), "field required")
}
