package merchants

import (
	"context"
	"errors"
	"francoggm/merchant-status-relay/internal/app/contentapi"
	"francoggm/merchant-status-relay/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryCache struct {
	entries map[string]*models.AggregationResponse
	getErr  error
	saveErr error
	gets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*models.AggregationResponse{}}
}

func (c *memoryCache) GetResponse(ctx context.Context, region string) (*models.AggregationResponse, error) {
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[region], nil
}

func (c *memoryCache) SaveResponse(ctx context.Context, region string, resp *models.AggregationResponse) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	c.entries[region] = resp
	return nil
}

type memoryHistory struct {
	regions []string
	err     error
}

func (h *memoryHistory) Record(ctx context.Context, region string, resp *models.AggregationResponse, fetchedAt time.Time) error {
	h.regions = append(h.regions, region)
	return h.err
}

func TestCachedServiceServesFromCache(t *testing.T) {
	client := &fakeClient{}
	cache := newMemoryCache()
	history := &memoryHistory{}
	cached := NewCachedService(newTestService(client, Options{}), cache, history, nil, zap.NewNop())

	first, err := cached.GetMerchantStatuses(context.Background(), "global", false)
	require.NoError(t, err)
	assert.Len(t, client.getCalls, 3)

	second, err := cached.GetMerchantStatuses(context.Background(), "global", false)
	require.NoError(t, err)
	assert.Len(t, client.getCalls, 3)
	assert.Equal(t, first, second)

	assert.Equal(t, []string{"global"}, history.regions)
}

func TestCachedServiceRefreshBypassesCache(t *testing.T) {
	client := &fakeClient{}
	cache := newMemoryCache()
	cached := NewCachedService(newTestService(client, Options{}), cache, nil, nil, zap.NewNop())

	_, err := cached.GetMerchantStatuses(context.Background(), "europe", false)
	require.NoError(t, err)
	_, err = cached.GetMerchantStatuses(context.Background(), "europe", true)
	require.NoError(t, err)

	assert.Len(t, client.listCalls, 2)
}

func TestCachedServiceDoesNotCacheErrors(t *testing.T) {
	client := &fakeClient{listErr: errors.New("unreachable")}
	cache := newMemoryCache()
	history := &memoryHistory{}
	cached := NewCachedService(newTestService(client, Options{}), cache, history, nil, zap.NewNop())

	_, err := cached.GetMerchantStatuses(context.Background(), "europe", false)
	require.Error(t, err)
	assert.Empty(t, cache.entries)
	assert.Empty(t, history.regions)

	_, err = cached.GetMerchantStatuses(context.Background(), "europe", false)
	require.Error(t, err)
	assert.Len(t, client.listCalls, 2)
}

func TestCachedServiceToleratesCacheFailures(t *testing.T) {
	client := &fakeClient{}
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")
	cache.saveErr = errors.New("redis down")
	history := &memoryHistory{err: errors.New("disk full")}
	cached := NewCachedService(newTestService(client, Options{}), cache, history, nil, zap.NewNop())

	resp, err := cached.GetMerchantStatuses(context.Background(), "global", false)
	require.NoError(t, err)
	assert.Len(t, resp.Data, 3)
}

func TestCachedServiceUnknownRegionSkipsCache(t *testing.T) {
	cache := newMemoryCache()
	cached := NewCachedService(newTestService(&fakeClient{}, Options{}), cache, nil, nil, zap.NewNop())

	_, err := cached.GetMerchantStatuses(context.Background(), "mars", false)
	require.ErrorIs(t, err, ErrUnknownRegion)
	assert.Zero(t, cache.gets)
}

func TestCachedServiceWithoutCache(t *testing.T) {
	client := &fakeClient{}
	cached := NewCachedService(newTestService(client, Options{}), nil, nil, nil, zap.NewNop())

	for range 2 {
		_, err := cached.GetMerchantStatuses(context.Background(), "global", false)
		require.NoError(t, err)
	}
	assert.Len(t, client.getCalls, 6)
}

func TestCachedServiceSkipsTransientEnvelopes(t *testing.T) {
	client := &fakeClient{getDelay: map[string]time.Duration{"124463984": time.Second}}
	cache := newMemoryCache()
	history := &memoryHistory{}
	cached := NewCachedService(newTestService(client, Options{Concurrency: 3, Timeout: 50 * time.Millisecond}), cache, history, nil, zap.NewNop())

	resp, err := cached.GetMerchantStatuses(context.Background(), "global", false)
	require.NoError(t, err)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Data[2].Error)
	assert.Empty(t, cache.entries)
	assert.Equal(t, []string{"global"}, history.regions)

	client.mu.Lock()
	client.getDelay = nil
	client.mu.Unlock()

	resp, err = cached.GetMerchantStatuses(context.Background(), "global", false)
	require.NoError(t, err)
	for _, r := range resp.Data {
		assert.True(t, r.OK())
	}
	assert.Contains(t, cache.entries, "global")
}

func TestCachedServiceCachesByFailureKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		cached bool
	}{
		{name: "throttled", err: &contentapi.APIError{StatusCode: 429, Message: "Quota exceeded"}, cached: false},
		{name: "server error", err: &contentapi.APIError{StatusCode: 503, Message: "Backend Error"}, cached: false},
		{name: "network", err: errors.New("connection refused"), cached: false},
		{name: "not found", err: &contentapi.APIError{StatusCode: 404, Message: "Account not found"}, cached: true},
		{name: "forbidden", err: &contentapi.APIError{StatusCode: 403, Message: "Permission denied"}, cached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{getErrs: map[string]error{"126580264": tt.err}}
			cache := newMemoryCache()
			cached := NewCachedService(newTestService(client, Options{Concurrency: 3}), cache, nil, nil, zap.NewNop())

			_, err := cached.GetMerchantStatuses(context.Background(), "global", false)
			require.NoError(t, err)

			_, ok := cache.entries["global"]
			assert.Equal(t, tt.cached, ok)
		})
	}
}
