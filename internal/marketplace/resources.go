package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListParams pages admin listings.
type ListParams struct {
	Page    int
	PerPage int
	Status  string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	return q
}

// ListAdvertisers fetches advertisers matching filter.
func (c *Client) ListAdvertisers(ctx context.Context, filter AdvertiserFilter) ([]Advertiser, error) {
	q := url.Values{}
	if filter.Sector != "" {
		q.Set("sector", filter.Sector)
	}
	if filter.City != "" {
		q.Set("city", filter.City)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	var out []Advertiser
	if err := c.do(ctx, http.MethodGet, "/advertisers", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list advertisers: %w", err)
	}
	return out, nil
}

// CreateAdvertiser registers an advertiser together with its packages.
func (c *Client) CreateAdvertiser(ctx context.Context, in NewAdvertiser) (Advertiser, error) {
	var out Advertiser
	if err := c.do(ctx, http.MethodPost, "/advertisers", nil, in, &out); err != nil {
		return Advertiser{}, fmt.Errorf("create advertiser: %w", err)
	}
	return out, nil
}

// SubmitAdRequest forwards the public "advertise with us" form.
func (c *Client) SubmitAdRequest(ctx context.Context, in AdRequest) (AdRequestRecord, error) {
	var out AdRequestRecord
	if err := c.do(ctx, http.MethodPost, "/ad-requests", nil, in, &out); err != nil {
		return AdRequestRecord{}, fmt.Errorf("submit ad request: %w", err)
	}
	return out, nil
}

// ListAdRequests returns submitted ad requests.
func (c *Client) ListAdRequests(ctx context.Context, p ListParams) ([]AdRequestRecord, error) {
	var out []AdRequestRecord
	if err := c.do(ctx, http.MethodGet, "/ad-requests", p.values(), nil, &out); err != nil {
		return nil, fmt.Errorf("list ad requests: %w", err)
	}
	return out, nil
}

// ListSubscriptions returns advertiser subscriptions.
func (c *Client) ListSubscriptions(ctx context.Context, p ListParams) ([]Subscription, error) {
	var out []Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions", p.values(), nil, &out); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return out, nil
}

// ListInvoices returns issued invoices.
func (c *Client) ListInvoices(ctx context.Context, p ListParams) ([]Invoice, error) {
	var out []Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices", p.values(), nil, &out); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

// ListRefunds returns refunds.
func (c *Client) ListRefunds(ctx context.Context, p ListParams) ([]Refund, error) {
	var out []Refund
	if err := c.do(ctx, http.MethodGet, "/refunds", p.values(), nil, &out); err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	return out, nil
}

// Statistics returns the dashboard summary.
func (c *Client) Statistics(ctx context.Context) (Statistics, error) {
	var out Statistics
	if err := c.do(ctx, http.MethodGet, "/statistics", nil, nil, &out); err != nil {
		return Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	return out, nil
}
