package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Routes builds the full HTTP surface. allowedOrigins configures CORS for
// browser clients; an empty list disables cross-origin access.
func (h *HTTPHandler) Routes(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/{$}", h.Register)
	mux.HandleFunc("POST /auth/token", h.Login)
	mux.HandleFunc("GET /dashboard/{role}", h.authed(h.Welcome))

	mux.HandleFunc("GET /inventory", h.ListInventory)
	mux.HandleFunc("GET /inventory/{$}", h.ListInventory)
	mux.HandleFunc("POST /inventory", h.authed(h.CreateInventory))
	mux.HandleFunc("POST /inventory/{$}", h.authed(h.CreateInventory))
	mux.HandleFunc("PUT /inventory/{id}", h.authed(h.UpdateInventory))
	mux.HandleFunc("DELETE /inventory/{id}", h.authed(h.DeleteInventory))
	mux.HandleFunc("POST /inventory/bulk-import", h.authed(h.BulkImport))
	mux.HandleFunc("GET /inventory/export/csv", h.ExportCSV)
	mux.HandleFunc("GET /inventory/export/json", h.ListInventory)

	mux.HandleFunc("GET /requests/pending", h.authed(h.ListPending))
	mux.HandleFunc("GET /requests/history", h.authed(h.ListHistory))
	mux.HandleFunc("GET /requests/mine", h.authed(h.ListMine))
	mux.HandleFunc("GET /requests/available-items", h.authed(h.ListAvailable))
	mux.HandleFunc("POST /requests", h.authed(h.CreateRequest))
	mux.HandleFunc("POST /requests/{$}", h.authed(h.CreateRequest))
	mux.HandleFunc("DELETE /requests/{id}", h.authed(h.DeleteRequest))
	mux.HandleFunc("POST /requests/{id}/{action}", h.authed(h.TransitionRequest))

	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(h.instrument(mux))
}
