package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncoguide-server/internal/domain"
)

func newMemoryOnlyCache(t *testing.T) *ResultCache {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	c, err := NewResultCache(domain.CacheConfig{
		Enabled:    true,
		MaxItems:   16,
		DefaultTTL: time.Minute,
	}, logger)
	require.NoError(t, err)
	return c
}

func sampleRequest() *domain.ConsultationRequest {
	return &domain.ConsultationRequest{
		CancerType:        domain.BREAST,
		Stage:             "II",
		ProposedTreatment: "Chemotherapy",
		Symptoms:          []string{"breast lump", "fatigue"},
	}
}

func sampleResult() *domain.ConsultationResult {
	return &domain.ConsultationResult{
		ConsultationID: "test-id",
		CancerType:     domain.BREAST,
		Stage:          "II",
		Alignment:      domain.ALIGNED,
	}
}

func TestKeyDeterministic(t *testing.T) {
	base := Key(sampleRequest())

	variant := sampleRequest()
	variant.ProposedTreatment = "  chemotherapy "
	variant.Symptoms = []string{"Fatigue", "Breast Lump"}
	assert.Equal(t, base, Key(variant))

	other := sampleRequest()
	other.ProposedTreatment = "Surgery"
	assert.NotEqual(t, base, Key(other))

	otherStage := sampleRequest()
	otherStage.Stage = "III"
	assert.NotEqual(t, base, Key(otherStage))
}

func TestKeyStageAliases(t *testing.T) {
	base := Key(sampleRequest())

	for _, alias := range []string{"Stage II", "stage 2", "ii", "2"} {
		variant := sampleRequest()
		variant.Stage = alias
		assert.Equal(t, base, Key(variant), "stage alias %q", alias)
	}

	prostate := &domain.ConsultationRequest{
		CancerType:        domain.PROSTATE,
		Stage:             "LowRisk",
		ProposedTreatment: "Active Surveillance",
	}
	tierAlias := &domain.ConsultationRequest{
		CancerType:        domain.PROSTATE,
		Stage:             "low risk",
		ProposedTreatment: "Active Surveillance",
	}
	assert.Equal(t, Key(prostate), Key(tierAlias))
}

func TestBreakerIgnoresCacheMisses(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	breaker := newCacheBreaker(logger)

	// A cold cache returns a long run of misses; none may count as a
	// failure, so the breaker stays closed throughout.
	for i := 0; i < 20; i++ {
		value, err := breaker.Execute(func() (interface{}, error) {
			return filterMiss("", redis.Nil)
		})
		require.NoError(t, err)
		assert.Nil(t, value)
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())

	// Genuine Redis failures still trip it.
	connErr := errors.New("connection refused")
	for i := 0; i < 6; i++ {
		_, err := breaker.Execute(func() (interface{}, error) {
			return filterMiss("", connErr)
		})
		require.Error(t, err)
	}
	_, err := breaker.Execute(func() (interface{}, error) {
		return filterMiss("payload", nil)
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestFilterMiss(t *testing.T) {
	value, err := filterMiss("payload", nil)
	require.NoError(t, err)
	assert.Equal(t, "payload", value)

	value, err = filterMiss("", redis.Nil)
	require.NoError(t, err)
	assert.Nil(t, value)

	connErr := errors.New("connection refused")
	_, err = filterMiss("", connErr)
	assert.ErrorIs(t, err, connErr)
}

func TestGetSetMemoryTier(t *testing.T) {
	c := newMemoryOnlyCache(t)
	ctx := context.Background()
	req := sampleRequest()

	_, ok := c.Get(ctx, req)
	assert.False(t, ok)

	c.Set(ctx, req, sampleResult())

	result, ok := c.Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, "test-id", result.ConsultationID)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.MemoryMisses)
	assert.Zero(t, stats.RedisHits)
}

func TestPurge(t *testing.T) {
	c := newMemoryOnlyCache(t)
	ctx := context.Background()
	req := sampleRequest()

	c.Set(ctx, req, sampleResult())
	c.Purge()

	_, ok := c.Get(ctx, req)
	assert.False(t, ok)
}

func TestCloseWithoutRedis(t *testing.T) {
	c := newMemoryOnlyCache(t)
	assert.NoError(t, c.Close())
}
