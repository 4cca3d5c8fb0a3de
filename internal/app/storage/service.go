package storage

import (
	"context"
	"fmt"
	"francoggm/merchant-status-relay/internal/models"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const responseKeyPrefix = "merchant_status:"

// StorageService keeps the last successful aggregation of every region.
type StorageService struct {
	cache *redis.Client
	ttl   time.Duration
}

func NewStorageService(cache *redis.Client, ttl time.Duration) *StorageService {
	return &StorageService{
		cache: cache,
		ttl:   ttl,
	}
}

func (s *StorageService) SaveResponse(ctx context.Context, region string, resp *models.AggregationResponse) error {
	payload, err := sonic.ConfigFastest.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal statuses of %s: %w", region, err)
	}

	return s.cache.Set(ctx, responseKey(region), payload, s.ttl).Err()
}

// GetResponse returns nil without error when nothing is cached.
func (s *StorageService) GetResponse(ctx context.Context, region string) (*models.AggregationResponse, error) {
	payload, err := s.cache.Get(ctx, responseKey(region)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var resp models.AggregationResponse
	if err := sonic.ConfigFastest.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal statuses of %s: %w", region, err)
	}

	return &resp, nil
}

func (s *StorageService) PurgeResponses(ctx context.Context, regions ...string) error {
	if len(regions) == 0 {
		return nil
	}

	keys := make([]string, 0, len(regions))
	for _, region := range regions {
		keys = append(keys, responseKey(region))
	}

	return s.cache.Del(ctx, keys...).Err()
}

func responseKey(region string) string {
	return responseKeyPrefix + region
}
