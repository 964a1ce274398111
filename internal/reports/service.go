package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Service serves the three statements with a short-lived redis cache in
// front of the aggregation queries. Singleflight collapses concurrent
// builds of the same report; a cache outage degrades to direct reads.
type Service struct {
	repo   Repository
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewService constructs a Service. cache may be nil to disable caching.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

const dayFormat = "2006-01-02"

// TrialBalance builds the trial balance over [start, end].
func (s *Service) TrialBalance(ctx context.Context, start, end time.Time) (TrialBalance, error) {
	key := fmt.Sprintf("reports:tb:%s:%s", start.Format(dayFormat), end.Format(dayFormat))
	return cached(ctx, s, key, func() (TrialBalance, error) {
		balances, err := s.repo.BalancesInRange(ctx, start, end)
		if err != nil {
			return TrialBalance{}, err
		}
		return BuildTrialBalance(balances, start, end), nil
	})
}

// BalanceSheet builds the statement of position as of the given date.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	key := fmt.Sprintf("reports:bs:%s", asOf.Format(dayFormat))
	return cached(ctx, s, key, func() (BalanceSheet, error) {
		balances, err := s.repo.BalancesAsOf(ctx, asOf)
		if err != nil {
			return BalanceSheet{}, err
		}
		return BuildBalanceSheet(balances, asOf), nil
	})
}

// ProfitAndLoss builds the income statement over [start, end].
func (s *Service) ProfitAndLoss(ctx context.Context, start, end time.Time) (ProfitAndLoss, error) {
	key := fmt.Sprintf("reports:pl:%s:%s", start.Format(dayFormat), end.Format(dayFormat))
	return cached(ctx, s, key, func() (ProfitAndLoss, error) {
		balances, err := s.repo.BalancesInRange(ctx, start, end)
		if err != nil {
			return ProfitAndLoss{}, err
		}
		return BuildProfitAndLoss(balances, start, end), nil
	})
}

// Invalidate drops all cached reports. Call after a posting burst when
// fresh figures matter more than the TTL.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	iter := s.cache.Scan(ctx, 0, "reports:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan report cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("drop report cache: %w", err)
	}
	return nil
}

func cached[T any](ctx context.Context, s *Service, key string, build func() (T, error)) (T, error) {
	var zero T
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var out T
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
		} else if err != redis.Nil && s.logger != nil {
			s.logger.Warn("report cache read failed", slog.String("key", key), slog.Any("error", err))
		}
	}

	val, err, _ := s.group.Do(key, func() (any, error) {
		out, err := build()
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(out); err == nil {
				if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil && s.logger != nil {
					s.logger.Warn("report cache write failed", slog.String("key", key), slog.Any("error", err))
				}
			}
		}
		return out, nil
	})
	if err != nil {
		return zero, err
	}
	return val.(T), nil
}
