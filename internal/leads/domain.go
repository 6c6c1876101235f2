// Package leads serves the moving-cost calculator and routes the resulting
// leads to advertisers in turn.
package leads

import (
	"errors"
	"time"

	"github.com/khadamat/khadamat/internal/moving"
)

// IdempotencyModule scopes Idempotency-Key values used by lead submissions.
const IdempotencyModule = "leads"

// ErrDuplicateLead is returned when an Idempotency-Key was already used.
var ErrDuplicateLead = errors.New("lead already submitted")

// EstimateRequest is the calculator form.
type EstimateRequest struct {
	Rooms     map[moving.RoomType]int `json:"rooms" validate:"dive,gte=0,lte=50"`
	Distance  moving.DistanceTier     `json:"distance" validate:"omitempty,oneof=local nearCity betweenCities longDistance"`
	FromFloor string                  `json:"from_floor" validate:"omitempty,max=20"`
	ToFloor   string                  `json:"to_floor" validate:"omitempty,max=20"`
	Services  []string                `json:"services" validate:"max=10,dive,max=30"`
}

func (r EstimateRequest) toMoving() (moving.Request, error) {
	inv := moving.NewInventory()
	for t, qty := range r.Rooms {
		if err := inv.Set(t, qty); err != nil {
			return moving.Request{}, err
		}
	}
	return moving.Request{
		Rooms:     inv,
		Distance:  r.Distance,
		FromFloor: r.FromFloor,
		ToFloor:   r.ToFloor,
		Services:  r.Services,
	}, nil
}

// LeadRequest is a calculator submission that asks to be contacted.
type LeadRequest struct {
	Customer moving.Customer `json:"customer" validate:"required"`
	Move     EstimateRequest `json:"move"`
}

// RoutedAdvertiser is the advertiser chosen for a lead.
type RoutedAdvertiser struct {
	ID          int64  `json:"id"`
	CompanyName string `json:"company_name"`
	Phone       string `json:"phone"`
	IconURL     string `json:"icon_url,omitempty"`
}

// LeadResult is returned to the customer, who opens Link to start the chat.
type LeadResult struct {
	LeadID     string           `json:"lead_id"`
	Advertiser RoutedAdvertiser `json:"advertiser"`
	Quote      moving.Quote     `json:"quote"`
	Message    string           `json:"message"`
	Link       string           `json:"whatsapp_link"`
	CreatedAt  time.Time        `json:"created_at"`
}
