package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"francoggm/merchant-status-relay/internal/models"
)

type StatusFetcher interface {
	GetAccountStatus(ctx context.Context, merchantID, accountID string) (json.RawMessage, error)
}

// StatusEvent asks for the status of one merchant, to be written to Slot.
type StatusEvent struct {
	Slot     int
	Merchant models.MerchantDescriptor
}

// StatusProcessor fetches standalone account statuses into a fixed result
// table. Each slot is written by exactly one event.
type StatusProcessor struct {
	fetcher StatusFetcher
	results []models.StatusResult
	errs    []error
}

func NewStatusProcessor(fetcher StatusFetcher, size int) *StatusProcessor {
	return &StatusProcessor{
		fetcher: fetcher,
		results: make([]models.StatusResult, size),
		errs:    make([]error, size),
	}
}

func (p *StatusProcessor) ProcessEvent(ctx context.Context, event any) error {
	e := event.(*StatusEvent)
	merchant := e.Merchant

	// Standalone accounts are their own merchant.
	payload, err := p.fetcher.GetAccountStatus(ctx, merchant.AccountID, merchant.AccountID)
	if err != nil {
		p.results[e.Slot] = models.Failure(merchant.DisplayName, err.Error())
		p.errs[e.Slot] = err
		return fmt.Errorf("fetch status for %s: %w", merchant.DisplayName, err)
	}

	p.results[e.Slot] = models.Success(merchant.DisplayName, payload)
	return nil
}

// Results must only be read after every event has been processed.
func (p *StatusProcessor) Results() []models.StatusResult {
	return p.results
}

func (p *StatusProcessor) Errors() []error {
	return p.errs
}
