package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/forcebridge/forcebridge/internal/api/middleware"
	"github.com/forcebridge/forcebridge/internal/config"
	"github.com/forcebridge/forcebridge/internal/mcpgw"
	"github.com/forcebridge/forcebridge/pkg/models"
)

// NewRouter creates the HTTP router with the MCP endpoint and probes.
func NewRouter(cfg *config.Config, gw *mcpgw.Gateway) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(middleware.NewAPIKeyAuth().Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// OAuth discovery — MCP clients probe this before connecting. The
	// bridge does its own JWT-bearer auth server-side, so the document
	// advertises no interactive endpoints.
	r.Get("/.well-known/oauth-authorization-server", oauthDiscoveryHandler)

	// MCP protocol endpoint
	r.Post("/", mcpHandler(gw))

	return r
}

func mcpHandler(gw *mcpgw.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.MCPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Warn().Err(err).Msg("failed to parse MCP request")
			writeJSON(w, http.StatusBadRequest, models.MCPResponse{
				Jsonrpc: "2.0",
				Error: &models.MCPError{
					Code:    -32700,
					Message: "Parse error",
				},
			})
			return
		}

		resp := gw.HandleJSONRPC(r.Context(), &req)
		if resp == nil {
			// Notification — acknowledged without a body.
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "forcebridge",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": cfg.Version,
			"service": "forcebridge",
		})
	}
}

func oauthDiscoveryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"issuer":                 "forcebridge",
		"authorization_endpoint": nil,
		"token_endpoint":         nil,
	})
}
