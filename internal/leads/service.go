package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/moving"
	"github.com/khadamat/khadamat/internal/observability"
	"github.com/khadamat/khadamat/internal/platform/httpx"
	"github.com/khadamat/khadamat/internal/rotation"
	"github.com/khadamat/khadamat/internal/shared"
	"github.com/khadamat/khadamat/jobs"
)

// AdvertiserSource lists the advertisers eligible for a sector.
type AdvertiserSource interface {
	Advertisers(ctx context.Context, sector, city string) ([]marketplace.Advertiser, error)
}

// IdempotencyGuard rejects replayed submissions.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Dispatcher hands a routed lead to the background worker.
type Dispatcher interface {
	EnqueueLeadDispatch(ctx context.Context, payload jobs.LeadDispatchPayload) (*asynq.TaskInfo, error)
}

// ServiceConfig collects Service dependencies. Idempotency, Dispatcher and
// Metrics are optional.
type ServiceConfig struct {
	Estimator   *moving.Estimator
	Advertisers AdvertiserSource
	RoundRobin  *rotation.RoundRobin
	Idempotency IdempotencyGuard
	Dispatcher  Dispatcher
	Metrics     *observability.Metrics
	Logger      *slog.Logger
	Sector      string
}

// Service prices moves and routes leads.
type Service struct {
	estimator   *moving.Estimator
	advertisers AdvertiserSource
	rr          *rotation.RoundRobin
	idem        IdempotencyGuard
	dispatcher  Dispatcher
	metrics     *observability.Metrics
	logger      *slog.Logger
	sector      string
	now         func() time.Time
	newID       func() string
}

// NewService constructs the service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sector := cfg.Sector
	if sector == "" {
		sector = "moving"
	}
	return &Service{
		estimator:   cfg.Estimator,
		advertisers: cfg.Advertisers,
		rr:          cfg.RoundRobin,
		idem:        cfg.Idempotency,
		dispatcher:  cfg.Dispatcher,
		metrics:     cfg.Metrics,
		logger:      logger,
		sector:      sector,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.NewString() },
	}
}

// RateCard returns the active moving rate card.
func (s *Service) RateCard() *moving.RateCard {
	return s.estimator.RateCard()
}

// Estimate prices a calculator form.
func (s *Service) Estimate(req EstimateRequest) (moving.Quote, error) {
	mreq, err := req.toMoving()
	if err != nil {
		return moving.Quote{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	quote, err := s.estimator.Estimate(mreq)
	if err != nil {
		return moving.Quote{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	s.metrics.ObserveQuote(string(quote.TruckType))
	return quote, nil
}

// SubmitLead prices the move, picks the next advertiser in rotation and
// builds the WhatsApp hand-off. idemKey may be empty.
func (s *Service) SubmitLead(ctx context.Context, idemKey string, req LeadRequest) (result LeadResult, err error) {
	idemKey = strings.TrimSpace(idemKey)
	if idemKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, IdempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.metrics.ObserveLead("duplicate")
				return LeadResult{}, fmt.Errorf("%w: %w", httpx.ErrDuplicate, ErrDuplicateLead)
			}
			if errors.Is(err, shared.ErrIdempotencyKeyInvalid) {
				return LeadResult{}, fmt.Errorf("%w: %w", httpx.ErrValidation, err)
			}
			return LeadResult{}, fmt.Errorf("leads: idempotency: %w", err)
		}
		defer func() {
			if err == nil {
				return
			}
			if delErr := s.idem.Delete(context.WithoutCancel(ctx), idemKey, IdempotencyModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}()
	}

	quote, err := s.Estimate(req.Move)
	if err != nil {
		return LeadResult{}, err
	}

	advertiser, err := s.pickAdvertiser(ctx)
	if err != nil {
		return LeadResult{}, err
	}

	message := moving.ComposeMessage(req.Customer, quote)
	result = LeadResult{
		LeadID: s.newID(),
		Advertiser: RoutedAdvertiser{
			ID:          advertiser.ID,
			CompanyName: advertiser.CompanyName,
			Phone:       advertiser.ContactNumber(),
			IconURL:     advertiser.IconURL,
		},
		Quote:     quote,
		Message:   message,
		Link:      moving.WhatsAppLink(advertiser.ContactNumber(), message),
		CreatedAt: s.now(),
	}
	s.metrics.ObserveLead("routed")
	s.dispatch(ctx, result)
	return result, nil
}

func (s *Service) pickAdvertiser(ctx context.Context) (marketplace.Advertiser, error) {
	list, err := s.advertisers.Advertisers(ctx, s.sector, "")
	if err != nil {
		s.metrics.ObserveLead("failed")
		s.metrics.ObserveUpstreamError("list_advertisers")
		if errors.Is(err, marketplace.ErrUpstream) {
			return marketplace.Advertiser{}, fmt.Errorf("leads: %w: %v", httpx.ErrUpstream, err)
		}
		return marketplace.Advertiser{}, fmt.Errorf("leads: advertisers: %w", err)
	}
	reachable := make([]marketplace.Advertiser, 0, len(list))
	for _, a := range list {
		if a.Active() && moving.NormalizePhone(a.ContactNumber()) != "" {
			reachable = append(reachable, a)
		}
	}
	advertiser, err := rotation.Pick(ctx, s.rr, reachable)
	if err != nil {
		if errors.Is(err, rotation.ErrNoAdvertisers) {
			s.metrics.ObserveLead("no_advertiser")
		} else {
			s.metrics.ObserveLead("failed")
		}
		return marketplace.Advertiser{}, fmt.Errorf("leads: %w", err)
	}
	return advertiser, nil
}

// dispatch is fire-and-forget: the customer already has the link.
func (s *Service) dispatch(ctx context.Context, r LeadResult) {
	if s.dispatcher == nil {
		return
	}
	payload := jobs.LeadDispatchPayload{
		LeadID:         r.LeadID,
		Sector:         s.sector,
		AdvertiserID:   r.Advertiser.ID,
		AdvertiserName: r.Advertiser.CompanyName,
		Total:          r.Quote.Total,
		Currency:       r.Quote.Currency,
		CreatedAt:      r.CreatedAt,
	}
	if _, err := s.dispatcher.EnqueueLeadDispatch(ctx, payload); err != nil {
		s.logger.Warn("enqueue lead dispatch", slog.String("lead_id", r.LeadID), slog.Any("error", err))
	}
}
