// Package admin backs the advertiser management panel. Every call is made
// with the caller's own token against the marketplace API.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/plans"
	"github.com/khadamat/khadamat/internal/platform/httpx"
	"github.com/khadamat/khadamat/internal/pricing"
	"github.com/khadamat/khadamat/internal/subscriptions"
)

// Bumper invalidates the public catalog after advertiser changes.
type Bumper interface {
	Bump(ctx context.Context) error
}

// QuoteRequest selects packages and pricing terms for a new advertiser.
type QuoteRequest struct {
	Coverage       plans.Coverage       `json:"coverage" validate:"required,oneof=kingdom city both"`
	KingdomPlanID  int64                `json:"kingdom_plan_id" validate:"gte=0"`
	CityPlanID     int64                `json:"city_plan_id" validate:"gte=0"`
	City           string               `json:"city" validate:"max=80"`
	DiscountType   pricing.DiscountType `json:"discount_type" validate:"omitempty,oneof=amount percentage"`
	DiscountAmount float64              `json:"discount_amount" validate:"gte=0"`
	IncludeVAT     bool                 `json:"include_vat"`
	PaidAmount     float64              `json:"paid_amount" validate:"gte=0"`
	StartDate      string               `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

// QuoteResult is the previewed subscription.
type QuoteResult struct {
	Packages         []subscriptions.Package `json:"packages"`
	Breakdown        subscriptions.Breakdown `json:"breakdown"`
	DisplayRemaining float64                 `json:"display_remaining"`
	Overpaid         bool                    `json:"overpaid"`
}

// CreateAdvertiserRequest is the new-advertiser form.
type CreateAdvertiserRequest struct {
	QuoteRequest
	CompanyName   string   `json:"company_name" validate:"required,max=200"`
	Phone         string   `json:"phone" validate:"required,min=9,max=20"`
	WhatsApp      string   `json:"whatsapp" validate:"omitempty,min=9,max=20"`
	Services      []string `json:"services" validate:"max=20,dive,max=60"`
	IconURL       string   `json:"icon_url" validate:"omitempty,url"`
	Sector        string   `json:"sector" validate:"omitempty,max=40"`
	PaymentMethod string   `json:"payment_method" validate:"omitempty,oneof=cash transfer card"`
	PaymentNotes  string   `json:"payment_notes" validate:"max=500"`
}

// Service implements the admin operations.
type Service struct {
	api    *marketplace.Client
	bumper Bumper
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the admin service. bumper may be nil.
func NewService(api *marketplace.Client, bumper Bumper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, bumper: bumper, logger: logger, now: time.Now}
}

// Plans lists plans as the admin sees them, inactive ones included.
func (s *Service) Plans(ctx context.Context, token string) ([]plans.Plan, error) {
	list, err := s.api.WithToken(token).ListPlans(ctx)
	if err != nil {
		return nil, mapUpstream(err)
	}
	return list, nil
}

// Quote previews packages and pricing for req.
func (s *Service) Quote(ctx context.Context, token string, req QuoteRequest) (QuoteResult, error) {
	available, err := s.Plans(ctx, token)
	if err != nil {
		return QuoteResult{}, err
	}
	sel, err := plans.Select(available, req.Coverage, req.KingdomPlanID, req.CityPlanID, req.City)
	if err != nil {
		return QuoteResult{}, selectionError(err)
	}
	if !sel.IsComplete() {
		return QuoteResult{}, incompleteSelection(req)
	}

	start := s.now()
	if req.StartDate != "" {
		if start, err = time.Parse("2006-01-02", req.StartDate); err != nil {
			return QuoteResult{}, httpx.FieldErrors{"start_date": "datetime=2006-01-02"}
		}
	}

	selected := sel.Packages()
	base := subscriptions.BasePrice(selected)
	typ := req.DiscountType
	if typ == "" {
		typ = pricing.DiscountAmount
	}
	breakdown := subscriptions.Calculate(subscriptions.Input{
		Packages:       selected,
		DiscountType:   typ,
		DiscountAmount: pricing.ClampDiscount(base, typ, req.DiscountAmount),
		IncludeVAT:     req.IncludeVAT,
		PaidAmount:     req.PaidAmount,
	})
	return QuoteResult{
		Packages:         subscriptions.BuildPackages(selected, start),
		Breakdown:        breakdown,
		DisplayRemaining: breakdown.DisplayRemaining(),
		Overpaid:         breakdown.Overpaid(),
	}, nil
}

// CreateAdvertiser prices the selection server side and registers the advertiser.
func (s *Service) CreateAdvertiser(ctx context.Context, token string, req CreateAdvertiserRequest) (marketplace.Advertiser, QuoteResult, error) {
	quote, err := s.Quote(ctx, token, req.QuoteRequest)
	if err != nil {
		return marketplace.Advertiser{}, QuoteResult{}, err
	}
	city := ""
	if req.Coverage == plans.CoverageCity {
		city = req.City
	}
	adv, err := s.api.WithToken(token).CreateAdvertiser(ctx, marketplace.NewAdvertiser{
		CompanyName:   req.CompanyName,
		Phone:         req.Phone,
		WhatsApp:      req.WhatsApp,
		Services:      req.Services,
		IconURL:       req.IconURL,
		Sector:        req.Sector,
		City:          city,
		Status:        marketplace.StatusActive,
		Packages:      quote.Packages,
		Pricing:       quote.Breakdown,
		PaymentMethod: req.PaymentMethod,
		PaymentNotes:  req.PaymentNotes,
	})
	if err != nil {
		return marketplace.Advertiser{}, QuoteResult{}, mapUpstream(err)
	}
	if s.bumper != nil {
		if err := s.bumper.Bump(ctx); err != nil {
			s.logger.Warn("bump catalog after advertiser create", slog.Any("error", err))
		}
	}
	return adv, quote, nil
}

// Advertisers lists advertisers.
func (s *Service) Advertisers(ctx context.Context, token string, filter marketplace.AdvertiserFilter) ([]marketplace.Advertiser, error) {
	list, err := s.api.WithToken(token).ListAdvertisers(ctx, filter)
	return list, mapUpstream(err)
}

// AdRequests lists submitted ad requests.
func (s *Service) AdRequests(ctx context.Context, token string, p marketplace.ListParams) ([]marketplace.AdRequestRecord, error) {
	list, err := s.api.WithToken(token).ListAdRequests(ctx, p)
	return list, mapUpstream(err)
}

// Subscriptions lists subscriptions.
func (s *Service) Subscriptions(ctx context.Context, token string, p marketplace.ListParams) ([]marketplace.Subscription, error) {
	list, err := s.api.WithToken(token).ListSubscriptions(ctx, p)
	return list, mapUpstream(err)
}

// Invoices lists invoices.
func (s *Service) Invoices(ctx context.Context, token string, p marketplace.ListParams) ([]marketplace.Invoice, error) {
	list, err := s.api.WithToken(token).ListInvoices(ctx, p)
	return list, mapUpstream(err)
}

// Refunds lists refunds.
func (s *Service) Refunds(ctx context.Context, token string, p marketplace.ListParams) ([]marketplace.Refund, error) {
	list, err := s.api.WithToken(token).ListRefunds(ctx, p)
	return list, mapUpstream(err)
}

// Statistics returns the dashboard summary.
func (s *Service) Statistics(ctx context.Context, token string) (marketplace.Statistics, error) {
	stats, err := s.api.WithToken(token).Statistics(ctx)
	return stats, mapUpstream(err)
}

func selectionError(err error) error {
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		return httpx.FieldErrors{"plan_id": "plan not available for coverage"}
	case errors.Is(err, plans.ErrInvalidCoverage):
		return httpx.FieldErrors{"coverage": "oneof=kingdom city both"}
	default:
		return err
	}
}

func incompleteSelection(req QuoteRequest) error {
	fields := httpx.FieldErrors{}
	if req.Coverage == plans.CoverageKingdom || req.Coverage == plans.CoverageBoth {
		if req.KingdomPlanID == 0 {
			fields["kingdom_plan_id"] = "required"
		}
	}
	if req.Coverage == plans.CoverageCity || req.Coverage == plans.CoverageBoth {
		if req.CityPlanID == 0 {
			fields["city_plan_id"] = "required"
		}
		if req.City == "" {
			fields["city"] = "required"
		}
	}
	if len(fields) == 0 {
		fields["coverage"] = "incomplete selection"
	}
	return fields
}

func mapUpstream(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *marketplace.APIError
	switch {
	case errors.Is(err, marketplace.ErrUnauthorized):
		return fmt.Errorf("%w: %v", httpx.ErrUnauthorized, err)
	case errors.Is(err, marketplace.ErrNotFound):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.As(err, &apiErr) && len(apiErr.Fields) > 0:
		return httpx.FieldErrors(apiErr.Fields)
	case errors.As(err, &apiErr) && apiErr.Status == 409:
		return fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
	case errors.As(err, &apiErr) && apiErr.Status < 500:
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	default:
		return fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	}
}
