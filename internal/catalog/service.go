// Package catalog serves plans and advertisers from the marketplace API
// through a shared Redis cache.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/plans"
	"github.com/khadamat/khadamat/internal/platform/cache"
)

// Source is the upstream the catalog reads from.
type Source interface {
	ListPlans(ctx context.Context) ([]plans.Plan, error)
	ListAdvertisers(ctx context.Context, filter marketplace.AdvertiserFilter) ([]marketplace.Advertiser, error)
}

// Snapshot is a consistent view of plans and advertisers.
type Snapshot struct {
	Plans       []plans.Plan             `json:"plans"`
	Advertisers []marketplace.Advertiser `json:"advertisers"`
}

// Service loads catalog data with caching and request coalescing.
type Service struct {
	source Source
	cache  *cache.Versioned
	group  singleflight.Group
	logger *slog.Logger
}

// NewService constructs the catalog. cache may be nil.
func NewService(source Source, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: c, logger: logger}
}

// Plans returns every deduplicated plan.
func (s *Service) Plans(ctx context.Context) ([]plans.Plan, error) {
	var out []plans.Plan
	err := s.cached(ctx, []string{"plans"}, &out, func(ctx context.Context) (any, error) {
		list, err := s.source.ListPlans(ctx)
		if err != nil {
			return nil, err
		}
		return plans.Dedupe(list), nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: plans: %w", err)
	}
	return out, nil
}

// ActivePlans returns active plans offered to sector.
func (s *Service) ActivePlans(ctx context.Context, sector string) ([]plans.Plan, error) {
	all, err := s.Plans(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]plans.Plan, 0, len(all))
	for _, p := range plans.BySector(all, sector) {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out, nil
}

// Advertisers returns the active advertisers matching sector and city.
func (s *Service) Advertisers(ctx context.Context, sector, city string) ([]marketplace.Advertiser, error) {
	filter := marketplace.AdvertiserFilter{Sector: sector, City: city, Status: marketplace.StatusActive}
	var out []marketplace.Advertiser
	err := s.cached(ctx, []string{"advertisers", keyPart(sector), keyPart(city)}, &out, func(ctx context.Context) (any, error) {
		list, err := s.source.ListAdvertisers(ctx, filter)
		if err != nil {
			return nil, err
		}
		active := make([]marketplace.Advertiser, 0, len(list))
		for _, a := range list {
			if a.Active() {
				active = append(active, a)
			}
		}
		return active, nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: advertisers: %w", err)
	}
	return out, nil
}

// Snapshot loads plans and advertisers for sector concurrently.
func (s *Service) Snapshot(ctx context.Context, sector string) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.ActivePlans(ctx, sector)
		if err != nil {
			return err
		}
		snap.Plans = list
		return nil
	})
	g.Go(func() error {
		list, err := s.Advertisers(ctx, sector, "")
		if err != nil {
			return err
		}
		snap.Advertisers = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Bump invalidates every cached entry.
func (s *Service) Bump(ctx context.Context) error {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return fmt.Errorf("catalog: bump: %w", err)
	}
	s.logger.Info("catalog cache bumped", slog.Int64("version", ver))
	return nil
}

// Refresh invalidates the cache and warms it for the given sectors.
func (s *Service) Refresh(ctx context.Context, sectors ...string) error {
	if err := s.Bump(ctx); err != nil {
		return err
	}
	if len(sectors) == 0 {
		sectors = []string{""}
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, sector := range sectors {
		g.Go(func() error {
			_, err := s.Snapshot(ctx, sector)
			return err
		})
	}
	return g.Wait()
}

func (s *Service) cached(ctx context.Context, parts []string, dest any, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	uncached := err != nil
	if uncached {
		s.logger.Warn("catalog cache unavailable", slog.Any("error", err))
		key = "uncached:" + strings.Join(parts, ":")
	}
	ch := s.group.DoChan(key, func() (any, error) {
		// Outlives the request that started the load.
		loadCtx := context.WithoutCancel(ctx)
		if uncached {
			return loader(loadCtx)
		}
		var raw any
		err := s.cache.FetchJSON(loadCtx, key, &raw, loader)
		if err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return remarshal(res.Val, dest)
	}
}

func keyPart(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "all"
	}
	return v
}
