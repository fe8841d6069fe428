package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const keyPrefix = "specialist:prediction:"

// RedisCache stores predictions in Redis behind a circuit breaker so an
// unavailable Redis costs one fast failure instead of a timeout per request.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	timeout time.Duration
}

// RedisConfig configures a RedisCache
type RedisConfig struct {
	URL           string
	TTL           time.Duration
	Timeout       time.Duration
	BreakerWindow time.Duration
	BreakerOpen   time.Duration
	Logger        *logrus.Logger
}

// NewRedisCache connects lazily; use Ping to check availability
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 200 * time.Millisecond
	}
	opts.DialTimeout = config.Timeout
	opts.ReadTimeout = config.Timeout
	opts.WriteTimeout = config.Timeout
	opts.MaxRetries = 0

	settings := gobreaker.Settings{
		Name:        "prediction-cache",
		MaxRequests: 1,
		Interval:    config.BreakerWindow,
		Timeout:     config.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	if config.Logger != nil {
		logger := config.Logger
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker changed state")
		}
	}

	return &RedisCache{
		client:  redis.NewClient(opts),
		breaker: gobreaker.NewCircuitBreaker(settings),
		ttl:     config.TTL,
		timeout: config.Timeout,
	}, nil
}

// Get returns the cached value. A miss is ("", false, nil).
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.breaker.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, keyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return val, nil
	})
	if err != nil {
		return "", false, err
	}
	if result == nil {
		return "", false, nil
	}
	return result.(string), true, nil
}

// Set stores value with the configured TTL
func (r *RedisCache) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err()
	})
	return err
}

// Ping checks connectivity outside the breaker
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// State returns the breaker state
func (r *RedisCache) State() gobreaker.State {
	return r.breaker.State()
}

// Close releases the connection pool
func (r *RedisCache) Close() error {
	return r.client.Close()
}
