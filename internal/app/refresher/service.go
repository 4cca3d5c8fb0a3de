package refresher

import (
	"context"
	"francoggm/merchant-status-relay/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leaderLockKey = "merchant_status_refresher_lock"

type Refresher interface {
	Refresh(ctx context.Context, region string) (*models.AggregationResponse, error)
}

// RefresherService keeps the response cache warm. Across all instances
// sharing the cache only the lock holder refreshes.
type RefresherService struct {
	refresher  Refresher
	regions    []string
	cache      *redis.Client
	instanceID string
	interval   time.Duration
	lockTTL    time.Duration
	logger     *zap.Logger
}

func NewRefresherService(refresher Refresher, regions []string, cache *redis.Client, interval time.Duration, logger *zap.Logger) *RefresherService {
	return &RefresherService{
		refresher:  refresher,
		regions:    regions,
		cache:      cache,
		instanceID: uuid.New().String(),
		interval:   interval,
		lockTTL:    3 * interval,
		logger:     logger.Named("refresher"),
	}
}

// Start runs the refresh loop until ctx is done.
func (s *RefresherService) Start(ctx context.Context) {
	go s.backgroundRoutine(ctx)
}

func (s *RefresherService) backgroundRoutine(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *RefresherService) tick(ctx context.Context) bool {
	isLeader, err := s.tryAcquireLeader(ctx)
	if err != nil {
		s.logger.Warn("error acquiring leader lock", zap.String("instance", s.instanceID), zap.Error(err))
		return false
	}
	if !isLeader {
		return false
	}

	s.refreshAll(ctx)
	return true
}

func (s *RefresherService) tryAcquireLeader(ctx context.Context) (bool, error) {
	acquired, err := s.cache.SetNX(ctx, leaderLockKey, s.instanceID, s.lockTTL).Result()
	if err != nil {
		return false, err
	}
	if acquired {
		return true, nil
	}

	currentLeader, err := s.cache.Get(ctx, leaderLockKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if currentLeader != s.instanceID {
		return false, nil
	}

	if err := s.cache.Expire(ctx, leaderLockKey, s.lockTTL).Err(); err != nil {
		s.logger.Warn("error renewing leader lock", zap.Error(err))
	}
	return true, nil
}

func (s *RefresherService) refreshAll(ctx context.Context) {
	for _, region := range s.regions {
		start := time.Now()
		resp, err := s.refresher.Refresh(ctx, region)
		if err != nil {
			s.logger.Error("error refreshing region", zap.String("region", region), zap.Error(err))
			continue
		}

		var failures int
		for _, result := range resp.Data {
			if !result.OK() {
				failures++
			}
		}

		s.logger.Info("refreshed region",
			zap.String("region", region),
			zap.Int("merchants", len(resp.Data)),
			zap.Int("failures", failures),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
