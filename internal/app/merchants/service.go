package merchants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"francoggm/merchant-status-relay/internal/app/contentapi"
	"francoggm/merchant-status-relay/internal/app/roster"
	"francoggm/merchant-status-relay/internal/app/workers"
	"francoggm/merchant-status-relay/internal/app/workers/processors"
	"francoggm/merchant-status-relay/internal/metrics"
	"francoggm/merchant-status-relay/internal/models"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// StatusNotFound is reported for MCA children missing from the parent list.
const StatusNotFound = "Status not found"

var (
	ErrUnknownRegion = roster.ErrUnknownRegion
	ErrAuth          = contentapi.ErrAuth
)

// ParentListError means the single list call of an MCA region failed, so
// none of its merchants can be reported.
type ParentListError struct {
	Region          string
	ParentAccountID string
	Err             error
}

func (e *ParentListError) Error() string {
	return fmt.Sprintf("list statuses of parent account %s for region %s: %v", e.ParentAccountID, e.Region, e.Err)
}

func (e *ParentListError) Unwrap() error {
	return e.Err
}

type StatusClient interface {
	GetAccountStatus(ctx context.Context, merchantID, accountID string) (json.RawMessage, error)
	ListAccountStatuses(ctx context.Context, merchantID string) ([]models.AccountStatus, error)
}

type Options struct {
	// Concurrency bounds parallel requests for direct regions.
	Concurrency int
	// Timeout bounds one whole aggregation. Zero means no bound.
	Timeout time.Duration
}

type Service struct {
	roster      *roster.Roster
	client      StatusClient
	tokens      oauth2.TokenSource
	concurrency int
	timeout     time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewService wires the aggregator. tokens may be nil when the client handles
// credentials on its own.
func NewService(r *roster.Roster, client StatusClient, tokens oauth2.TokenSource, opts Options, m *metrics.Metrics, logger *zap.Logger) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &Service{
		roster:      r,
		client:      client,
		tokens:      tokens,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		metrics:     m,
		logger:      logger.Named("merchants"),
	}
}

func (s *Service) Roster() *roster.Roster {
	return s.roster
}

// GetMerchantStatuses returns one result per roster entry of the region, in
// roster order. Per merchant failures are reported inside the response;
// only failures that affect the whole region are returned as errors.
func (s *Service) GetMerchantStatuses(ctx context.Context, regionKey string) (*models.AggregationResponse, error) {
	region, err := s.roster.Resolve(regionKey)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	results, transient, err := s.aggregate(ctx, region)
	s.metrics.Aggregation(region.Key, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	return &models.AggregationResponse{
		Name:      region.Label,
		Data:      results,
		Transient: transient,
	}, nil
}

// aggregate also reports whether any merchant failed for a reason that may
// clear up on its own.
func (s *Service) aggregate(ctx context.Context, region models.Region) ([]models.StatusResult, bool, error) {
	if s.tokens != nil {
		if _, err := contentapi.FetchToken(ctx, s.tokens); err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrAuth, err)
		}
	}

	switch region.Topology {
	case models.TopologyDirect:
		return s.directStatuses(ctx, region)
	case models.TopologyMCA:
		results, err := s.parentStatuses(ctx, region)
		return results, false, err
	}

	return nil, false, fmt.Errorf("region %s has unsupported topology %q", region.Key, region.Topology)
}

// directStatuses fetches every merchant on its own. A failing merchant only
// affects its own entry, unless credentials are gone altogether.
func (s *Service) directStatuses(ctx context.Context, region models.Region) ([]models.StatusResult, bool, error) {
	eventsCh := make(chan any, len(region.Merchants))
	for i, merchant := range region.Merchants {
		eventsCh <- &processors.StatusEvent{Slot: i, Merchant: merchant}
	}
	close(eventsCh)

	processor := processors.NewStatusProcessor(s.client, len(region.Merchants))
	orchestrator := workers.NewOrchestrator(min(s.concurrency, len(region.Merchants)), eventsCh, processor, s.logger)
	orchestrator.StartWorkers(ctx)
	orchestrator.Wait()

	var transient bool
	for i, err := range processor.Errors() {
		if err == nil {
			s.metrics.Fetch(region.Key, metrics.OutcomeOK)
			continue
		}
		if errors.Is(err, ErrAuth) {
			return nil, false, err
		}
		if contentapi.Transient(err) {
			transient = true
		}

		s.metrics.Fetch(region.Key, metrics.OutcomeError)
		s.logger.Warn("error getting merchant status",
			zap.String("region", region.Key),
			zap.String("merchant", region.Merchants[i].DisplayName),
			zap.Error(err),
		)
	}

	return processor.Results(), transient, nil
}

// parentStatuses lists all children of the region's MCA once and matches them
// to the roster. The first record for an account id wins.
func (s *Service) parentStatuses(ctx context.Context, region models.Region) ([]models.StatusResult, error) {
	statuses, err := s.client.ListAccountStatuses(ctx, region.ParentAccountID)
	if err != nil {
		if errors.Is(err, ErrAuth) {
			return nil, err
		}
		return nil, &ParentListError{Region: region.Key, ParentAccountID: region.ParentAccountID, Err: err}
	}

	results := make([]models.StatusResult, 0, len(region.Merchants))
	for _, merchant := range region.Merchants {
		idx := slices.IndexFunc(statuses, func(status models.AccountStatus) bool {
			return status.AccountID == merchant.AccountID
		})
		if idx < 0 {
			s.metrics.Fetch(region.Key, metrics.OutcomeNotFound)
			results = append(results, models.Failure(merchant.DisplayName, StatusNotFound))
			continue
		}

		s.metrics.Fetch(region.Key, metrics.OutcomeOK)
		results = append(results, models.Success(merchant.DisplayName, statuses[idx].Payload))
	}

	return results, nil
}
