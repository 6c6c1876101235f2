// Package directory serves the public listing: advertisers in rotating display
// order, purchasable plans and the "advertise with us" form.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/plans"
	"github.com/khadamat/khadamat/internal/platform/httpx"
	"github.com/khadamat/khadamat/internal/rotation"
)

// maxShufflers bounds the number of sector/city rotations kept alive.
const maxShufflers = 256

// Catalog is the read side used by the directory.
type Catalog interface {
	Advertisers(ctx context.Context, sector, city string) ([]marketplace.Advertiser, error)
	ActivePlans(ctx context.Context, sector string) ([]plans.Plan, error)
}

// AdRequestSubmitter forwards ad requests upstream.
type AdRequestSubmitter interface {
	SubmitAdRequest(ctx context.Context, in marketplace.AdRequest) (marketplace.AdRequestRecord, error)
}

// PlanGroups splits plans by coverage for the plan picker.
type PlanGroups struct {
	Kingdom []plans.Plan `json:"kingdom"`
	City    []plans.Plan `json:"city"`
}

type rotationEntry struct {
	shuffler    *rotation.Shuffler[marketplace.Advertiser]
	fingerprint string
}

// Service owns one display rotation per sector and city.
type Service struct {
	catalog  Catalog
	api      AdRequestSubmitter
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	rotations map[string]*rotationEntry
}

// NewService constructs the directory. Rotations stop when ctx is cancelled or Close is called.
func NewService(ctx context.Context, catalog Catalog, api AdRequestSubmitter, interval time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		catalog:   catalog,
		api:       api,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		rotations: make(map[string]*rotationEntry),
	}
}

// Advertisers returns the current display order for sector and city.
func (s *Service) Advertisers(ctx context.Context, sector, city string) ([]marketplace.Advertiser, error) {
	list, err := s.catalog.Advertisers(ctx, sector, city)
	if err != nil {
		return nil, upstream(err)
	}
	key := strings.ToLower(sector) + "|" + strings.ToLower(city)
	fp := fingerprint(list)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return rotation.Shuffle(nil, list), nil
	}
	entry, ok := s.rotations[key]
	if !ok {
		if len(s.rotations) >= maxShufflers {
			return rotation.Shuffle(nil, list), nil
		}
		entry = &rotationEntry{
			shuffler:    rotation.NewShuffler(list, s.interval),
			fingerprint: fp,
		}
		entry.shuffler.Start(s.ctx)
		s.rotations[key] = entry
	} else if entry.fingerprint != fp {
		entry.shuffler.Replace(list)
		entry.fingerprint = fp
	}
	return entry.shuffler.Current(), nil
}

// Plans returns active plans for sector grouped by coverage.
func (s *Service) Plans(ctx context.Context, sector string) (PlanGroups, error) {
	all, err := s.catalog.ActivePlans(ctx, sector)
	if err != nil {
		return PlanGroups{}, upstream(err)
	}
	return PlanGroups{
		Kingdom: plans.KingdomEligible(all),
		City:    plans.CityEligible(all),
	}, nil
}

// SubmitAdRequest checks the chosen plan is on offer and forwards the form.
func (s *Service) SubmitAdRequest(ctx context.Context, in marketplace.AdRequest) (marketplace.AdRequestRecord, error) {
	all, err := s.catalog.ActivePlans(ctx, "")
	if err != nil {
		return marketplace.AdRequestRecord{}, upstream(err)
	}
	if _, err := plans.Find(all, in.PlanID); err != nil {
		return marketplace.AdRequestRecord{}, httpx.FieldErrors{"plan_id": "unknown plan"}
	}
	rec, err := s.api.SubmitAdRequest(ctx, in)
	if err != nil {
		var apiErr *marketplace.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			return marketplace.AdRequestRecord{}, httpx.FieldErrors(apiErr.Fields)
		}
		return marketplace.AdRequestRecord{}, upstream(err)
	}
	return rec, nil
}

// Close stops every display rotation.
func (s *Service) Close() {
	s.cancel()
	s.mu.Lock()
	entries := make([]*rotationEntry, 0, len(s.rotations))
	for _, e := range s.rotations {
		entries = append(entries, e)
	}
	s.mu.Unlock()
	for _, e := range entries {
		e.shuffler.Stop()
	}
}

func fingerprint(list []marketplace.Advertiser) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		parts = append(parts, fmt.Sprintf("%d|%s|%s|%s", a.ID, a.CompanyName, a.ContactNumber(), a.IconURL))
	}
	slices.Sort(parts)
	return strings.Join(parts, "\n")
}

// upstream maps marketplace failures onto HTTP sentinels.
func upstream(err error) error {
	switch {
	case errors.Is(err, marketplace.ErrUpstream):
		return fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	case errors.Is(err, marketplace.ErrNotFound):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, marketplace.ErrUnauthorized):
		return fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	default:
		return err
	}
}
