// Package server wires the forcebridge components together: credential
// cache, Salesforce client, tool service, MCP gateway, and HTTP router.
//
// It lives in pkg/ so that embedders can compose the bridge into a larger
// process:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8000", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/forcebridge/forcebridge/internal/api"
	"github.com/forcebridge/forcebridge/internal/config"
	"github.com/forcebridge/forcebridge/internal/mcpgw"
	"github.com/forcebridge/forcebridge/internal/salesforce"
	"github.com/forcebridge/forcebridge/internal/telemetry"
	"github.com/forcebridge/forcebridge/internal/tools"
)

// Server holds the initialized forcebridge service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Config is the loaded configuration.
	Config *config.Config

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes the bridge from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the bridge with an explicit configuration.
func NewWithConfig(_ context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pem, err := cfg.Salesforce.PrivateKeyPEM()
	if err != nil {
		return nil, err
	}

	// One transport for both auth and REST calls, so the optional DNS
	// override applies everywhere.
	transport := salesforce.NewTransport(cfg.Salesforce.DNSServer)

	authn, err := salesforce.NewAuthenticator(salesforce.AuthConfig{
		ClientID:   cfg.Salesforce.ClientID,
		Username:   cfg.Salesforce.Username,
		LoginURL:   cfg.Salesforce.LoginURL,
		PrivateKey: pem,
	}, transport)
	if err != nil {
		return nil, fmt.Errorf("init authenticator: %w", err)
	}

	creds := salesforce.NewCredentialCache(authn.Authenticate)
	client := salesforce.NewClient(creds, cfg.Salesforce.APIVersion, transport)
	svc := tools.NewService(client, cfg.Salesforce.StrictIDCheck)
	gw := mcpgw.NewGateway(svc, cfg.Version)

	log.Info().
		Str("login_url", cfg.Salesforce.LoginURL).
		Str("api_version", cfg.Salesforce.APIVersion).
		Bool("strict_id_check", cfg.Salesforce.StrictIDCheck).
		Msg("salesforce client configured")

	return &Server{
		Handler:      api.NewRouter(cfg, gw),
		Config:       cfg,
		ShutdownFunc: shutdown,
	}, nil
}
