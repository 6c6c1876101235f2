package marketplace

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khadamat/khadamat/internal/plans"
	"github.com/khadamat/khadamat/internal/subscriptions"
)

// AdvertiserStatus values as stored by the API.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// Advertiser is a listed service provider. Read-only on this side.
type Advertiser struct {
	ID          int64    `json:"id"`
	CompanyName string   `json:"company_name"`
	Phone       string   `json:"phone"`
	WhatsApp    string   `json:"whatsapp,omitempty"`
	Services    []string `json:"services,omitempty"`
	IconURL     string   `json:"icon_url,omitempty"`
	Status      string   `json:"status"`
	City        string   `json:"city,omitempty"`
	Sector      string   `json:"sector,omitempty"`
}

// UnmarshalJSON accepts services as a list or a delimited string.
func (a *Advertiser) UnmarshalJSON(data []byte) error {
	type alias Advertiser
	var wire struct {
		alias
		Services json.RawMessage `json:"services"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = Advertiser(wire.alias)
	if len(wire.Services) > 0 {
		a.Services = plans.NormalizeFeatures(wire.Services)
	}
	return nil
}

// Active treats an empty status as active.
func (a Advertiser) Active() bool {
	return a.Status == "" || strings.EqualFold(a.Status, StatusActive)
}

// ContactNumber prefers the WhatsApp number.
func (a Advertiser) ContactNumber() string {
	if a.WhatsApp != "" {
		return a.WhatsApp
	}
	return a.Phone
}

// AdvertiserFilter narrows ListAdvertisers.
type AdvertiserFilter struct {
	Sector string
	City   string
	Status string
}

// NewAdvertiser is the payload for creating an advertiser with its packages.
type NewAdvertiser struct {
	CompanyName   string                  `json:"company_name" validate:"required,max=200"`
	Phone         string                  `json:"phone" validate:"required,min=9,max=20"`
	WhatsApp      string                  `json:"whatsapp,omitempty" validate:"omitempty,min=9,max=20"`
	Services      []string                `json:"services,omitempty"`
	IconURL       string                  `json:"icon_url,omitempty" validate:"omitempty,url"`
	Sector        string                  `json:"sector,omitempty"`
	City          string                  `json:"city,omitempty"`
	Status        string                  `json:"status,omitempty" validate:"omitempty,oneof=active inactive pending"`
	Packages      []subscriptions.Package `json:"packages" validate:"required,min=1"`
	Pricing       subscriptions.Breakdown `json:"pricing"`
	PaymentMethod string                  `json:"payment_method,omitempty"`
	PaymentNotes  string                  `json:"payment_notes,omitempty"`
}

// AdRequest is the public "advertise with us" form.
type AdRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
	ContactName string `json:"contact_name" validate:"required,max=120"`
	Phone       string `json:"phone" validate:"required,min=9,max=20"`
	WhatsApp    string `json:"whatsapp,omitempty" validate:"omitempty,min=9,max=20"`
	Message     string `json:"message,omitempty" validate:"max=2000"`
	PlanID      int64  `json:"plan_id" validate:"required,gt=0"`
}

// AdRequestRecord is an ad request as listed for admins.
type AdRequestRecord struct {
	ID int64 `json:"id"`
	AdRequest
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Amount is a money value decoded leniently: numbers and numeric strings are
// parsed exactly, while null, empty and malformed values decode as zero.
type Amount struct {
	decimal.Decimal
	malformed string
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	if text == "" {
		return nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		a.malformed = string(data)
		return nil
	}
	a.Decimal = d
	return nil
}

// Malformed reports the raw value when it could not be parsed.
func (a Amount) Malformed() (string, bool) {
	return a.malformed, a.malformed != ""
}

// Subscription is an advertiser's active or past package.
type Subscription struct {
	ID           int64          `json:"id"`
	AdvertiserID int64          `json:"advertiser_id"`
	PlanID       int64          `json:"plan_id"`
	CoverageType plans.PlanType `json:"coverage_type"`
	City         string         `json:"city,omitempty"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	Status       string         `json:"status"`
	TotalAmount  Amount         `json:"total_amount"`
	PaidAmount   Amount         `json:"paid_amount"`
}

// Invoice is a billing document issued by the API.
type Invoice struct {
	ID           int64  `json:"id"`
	Number       string `json:"invoice_number"`
	AdvertiserID int64  `json:"advertiser_id"`
	Amount       Amount `json:"amount"`
	VATAmount    Amount `json:"vat_amount"`
	Status       string `json:"status"`
	IssuedAt     string `json:"issued_at"`
}

// Refund records money returned to an advertiser.
type Refund struct {
	ID             int64  `json:"id"`
	SubscriptionID int64  `json:"subscription_id"`
	Amount         Amount `json:"amount"`
	Reason         string `json:"reason"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

// Statistics is the admin dashboard summary.
type Statistics struct {
	TotalAdvertisers    int    `json:"total_advertisers"`
	ActiveAdvertisers   int    `json:"active_advertisers"`
	ActiveSubscriptions int    `json:"active_subscriptions"`
	PendingAdRequests   int    `json:"pending_ad_requests"`
	TotalRevenue        Amount `json:"total_revenue"`
	OutstandingAmount   Amount `json:"outstanding_amount"`
}
