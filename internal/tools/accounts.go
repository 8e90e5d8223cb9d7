// Package tools implements the two Salesforce operations the bridge
// exposes: account listing and the quote-creation workflow.
package tools

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/forcebridge/forcebridge/internal/salesforce"
)

const (
	defaultAccountLimit = 5
	maxAccountLimit     = 100
)

// Service holds the CRM dependency shared by both operations.
type Service struct {
	crm           salesforce.CRM
	strictIDCheck bool
}

// NewService creates the tool service. When strictIDCheck is set, the
// quote workflow rejects opportunity ids without the standard "006" key
// prefix before touching the CRM.
func NewService(crm salesforce.CRM, strictIDCheck bool) *Service {
	return &Service{crm: crm, strictIDCheck: strictIDCheck}
}

// ListAccounts returns up to limit accounts (Id, Name). A limit outside
// [1,100] is silently replaced with the default of 5, never rejected.
func (s *Service) ListAccounts(ctx context.Context, limit int) ([]salesforce.Record, error) {
	if limit < 1 || limit > maxAccountLimit {
		log.Debug().Int("limit", limit).Msg("invalid account limit, using default")
		limit = defaultAccountLimit
	}

	log.Info().Int("limit", limit).Msg("fetching accounts")
	return s.crm.Query(ctx, fmt.Sprintf("SELECT Id, Name FROM Account LIMIT %d", limit))
}
