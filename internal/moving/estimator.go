// Package moving estimates the price of a household or office move.
package moving

import (
	"errors"
	"fmt"
	"sort"

	"github.com/khadamat/khadamat/internal/pricing"
)

const FloorGround = "ground"

var (
	ErrUnknownRoom     = errors.New("unknown room type")
	ErrUnknownDistance = errors.New("unknown distance tier")
	ErrUnknownFloor    = errors.New("unknown floor level")
	ErrUnknownService  = errors.New("unknown service")
)

// Inventory counts rooms by type. It starts with every type at zero.
type Inventory map[RoomType]int

// NewInventory returns an inventory with all room types zeroed.
func NewInventory() Inventory {
	inv := make(Inventory, len(RoomTypes))
	for _, rt := range RoomTypes {
		inv[rt] = 0
	}
	return inv
}

// Increment adds one room of type t.
func (inv Inventory) Increment(t RoomType) error {
	return inv.Set(t, inv[t]+1)
}

// Decrement removes one room of type t, stopping at zero.
func (inv Inventory) Decrement(t RoomType) error {
	return inv.Set(t, inv[t]-1)
}

// Set stores a quantity directly. Negative values become zero.
func (inv Inventory) Set(t RoomType, qty int) error {
	if !knownRoom(t) {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, t)
	}
	if qty < 0 {
		qty = 0
	}
	inv[t] = qty
	return nil
}

func knownRoom(t RoomType) bool {
	for _, rt := range RoomTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// Request is the full estimator input.
type Request struct {
	Rooms     Inventory    `json:"rooms"`
	Distance  DistanceTier `json:"distance"`
	FromFloor string       `json:"from_floor"`
	ToFloor   string       `json:"to_floor"`
	Services  []string     `json:"services"`
}

// LineItem is one row of the itemized quote.
type LineItem struct {
	Label    string  `json:"label"`
	Quantity int     `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// Quote is the itemized estimate.
type Quote struct {
	RoomsCost      float64      `json:"rooms_cost"`
	TotalItems     int          `json:"total_items"`
	TruckType      TruckType    `json:"truck_type"`
	TruckTypeLabel string       `json:"truck_type_label"`
	TruckCost      float64      `json:"truck_cost"`
	Distance       DistanceTier `json:"distance"`
	DistanceLabel  string       `json:"distance_label"`
	Multiplier     float64      `json:"multiplier"`
	DistanceFee    float64      `json:"distance_fee"`
	FloorFee       float64      `json:"floor_fee"`
	ServicesCost   float64      `json:"services_cost"`
	Total          float64      `json:"total"`
	Currency       string       `json:"currency"`
	Lines          []LineItem   `json:"lines"`
}

// TruckFor maps an item count onto a vehicle size. Thresholds are exclusive.
func TruckFor(totalItems int) TruckType {
	switch {
	case totalItems > 100:
		return TruckXLarge
	case totalItems > 60:
		return TruckLarge
	case totalItems > 30:
		return TruckMedium
	default:
		return TruckSmall
	}
}

// Estimator prices moves against a rate card.
type Estimator struct {
	rates *RateCard
}

// NewEstimator wraps a validated rate card.
func NewEstimator(rates *RateCard) *Estimator {
	return &Estimator{rates: rates}
}

// RateCard exposes the prices in use.
func (e *Estimator) RateCard() *RateCard { return e.rates }

// Estimate prices req. The distance multiplier applies to the whole subtotal
// and the distance fee is added afterwards.
func (e *Estimator) Estimate(req Request) (Quote, error) {
	q := Quote{Currency: e.rates.Currency}

	types := make([]RoomType, 0, len(req.Rooms))
	for t := range req.Rooms {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return roomOrder(types[i]) < roomOrder(types[j]) })
	for _, t := range types {
		qty := req.Rooms[t]
		rate, ok := e.rates.room(t)
		if !ok {
			return Quote{}, fmt.Errorf("%w: %q", ErrUnknownRoom, t)
		}
		if qty <= 0 {
			continue
		}
		cost := rate.BasePrice * float64(qty)
		q.RoomsCost += cost
		q.TotalItems += rate.ItemCount * qty
		q.Lines = append(q.Lines, LineItem{Label: rate.Label, Quantity: qty, Amount: cost})
	}

	truck, _ := e.rates.truck(TruckFor(q.TotalItems))
	q.TruckType = truck.Type
	q.TruckTypeLabel = truck.Label
	q.TruckCost = truck.BasePrice
	q.Lines = append(q.Lines, LineItem{Label: truck.Label, Quantity: 1, Amount: truck.BasePrice})

	tier := req.Distance
	if tier == "" {
		tier = DistanceLocal
	}
	dist, ok := e.rates.distance(tier)
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownDistance, req.Distance)
	}
	q.Distance = dist.Type
	q.DistanceLabel = dist.Label
	q.Multiplier = dist.Multiplier
	q.DistanceFee = dist.BaseFee

	for _, level := range []string{req.FromFloor, req.ToFloor} {
		if level == "" {
			level = FloorGround
		}
		f, ok := e.rates.floor(level)
		if !ok {
			return Quote{}, fmt.Errorf("%w: %q", ErrUnknownFloor, level)
		}
		q.FloorFee += f.Charge
	}
	if q.FloorFee > 0 {
		q.Lines = append(q.Lines, LineItem{Label: "رسوم الأدوار", Quantity: 1, Amount: q.FloorFee})
	}

	seen := make(map[string]struct{}, len(req.Services))
	for _, name := range req.Services {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		svc, ok := e.rates.service(name)
		if !ok {
			return Quote{}, fmt.Errorf("%w: %q", ErrUnknownService, name)
		}
		q.ServicesCost += svc.Fee
		q.Lines = append(q.Lines, LineItem{Label: svc.Label, Quantity: 1, Amount: svc.Fee})
	}

	baseTotal := q.RoomsCost + q.TruckCost + q.FloorFee + q.ServicesCost
	q.Total = pricing.Round(baseTotal*dist.Multiplier + dist.BaseFee)
	return q, nil
}

func roomOrder(t RoomType) int {
	for i, rt := range RoomTypes {
		if rt == t {
			return i
		}
	}
	return len(RoomTypes)
}
