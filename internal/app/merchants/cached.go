package merchants

import (
	"context"
	"francoggm/merchant-status-relay/internal/metrics"
	"francoggm/merchant-status-relay/internal/models"
	"time"

	"go.uber.org/zap"
)

type ResponseCache interface {
	GetResponse(ctx context.Context, region string) (*models.AggregationResponse, error)
	SaveResponse(ctx context.Context, region string, resp *models.AggregationResponse) error
}

type HistoryRecorder interface {
	Record(ctx context.Context, region string, resp *models.AggregationResponse, fetchedAt time.Time) error
}

// CachedService serves aggregations from the response cache when it can and
// stores successful live aggregations. Envelopes with transient failures are
// recorded in history but not cached. Cache and history are optional and
// their failures never fail a request.
type CachedService struct {
	service *Service
	cache   ResponseCache
	history HistoryRecorder
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewCachedService(service *Service, cache ResponseCache, history HistoryRecorder, m *metrics.Metrics, logger *zap.Logger) *CachedService {
	return &CachedService{
		service: service,
		cache:   cache,
		history: history,
		metrics: m,
		logger:  logger.Named("merchants"),
	}
}

// GetMerchantStatuses answers from the cache unless refresh is set or
// nothing is cached yet.
func (c *CachedService) GetMerchantStatuses(ctx context.Context, region string, refresh bool) (*models.AggregationResponse, error) {
	if _, err := c.service.Roster().Resolve(region); err != nil {
		return nil, err
	}

	if c.cache != nil && !refresh {
		cached, err := c.cache.GetResponse(ctx, region)
		if err != nil {
			c.logger.Warn("error reading cached statuses", zap.String("region", region), zap.Error(err))
		}

		c.metrics.CacheLookup(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	return c.Refresh(ctx, region)
}

// Refresh always aggregates live and stores the result.
func (c *CachedService) Refresh(ctx context.Context, region string) (*models.AggregationResponse, error) {
	resp, err := c.service.GetMerchantStatuses(ctx, region)
	if err != nil {
		return nil, err
	}

	switch {
	case c.cache == nil:
	case resp.Transient:
		c.logger.Debug("not caching statuses with transient failures", zap.String("region", region))
	default:
		if err := c.cache.SaveResponse(ctx, region, resp); err != nil {
			c.logger.Warn("error caching statuses", zap.String("region", region), zap.Error(err))
		}
	}

	if c.history != nil {
		if err := c.history.Record(ctx, region, resp, time.Now().UTC()); err != nil {
			c.logger.Warn("error recording status history", zap.String("region", region), zap.Error(err))
		}
	}

	return resp, nil
}
