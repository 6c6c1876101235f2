package moving

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed ratecard.yaml
var defaultRateCard []byte

// RoomType identifies a room in the inventory.
type RoomType string

const (
	RoomBedroom    RoomType = "bedroom"
	RoomLivingRoom RoomType = "livingRoom"
	RoomKitchen    RoomType = "kitchen"
	RoomBathroom   RoomType = "bathroom"
	RoomOffice     RoomType = "office"
	RoomStorage    RoomType = "storage"
)

// RoomTypes lists every room type in display order.
var RoomTypes = []RoomType{RoomBedroom, RoomLivingRoom, RoomKitchen, RoomBathroom, RoomOffice, RoomStorage}

// TruckType is a vehicle size.
type TruckType string

const (
	TruckSmall  TruckType = "small"
	TruckMedium TruckType = "medium"
	TruckLarge  TruckType = "large"
	TruckXLarge TruckType = "xlarge"
)

// DistanceTier is one of the mutually exclusive distance bands.
type DistanceTier string

const (
	DistanceLocal         DistanceTier = "local"
	DistanceNearCity      DistanceTier = "nearCity"
	DistanceBetweenCities DistanceTier = "betweenCities"
	DistanceLong          DistanceTier = "longDistance"
)

type RoomRate struct {
	Type      RoomType `yaml:"type" json:"type"`
	Label     string   `yaml:"label" json:"label"`
	BasePrice float64  `yaml:"base_price" json:"base_price"`
	ItemCount int      `yaml:"item_count" json:"item_count"`
}

type TruckRate struct {
	Type      TruckType `yaml:"type" json:"type"`
	Label     string    `yaml:"label" json:"label"`
	BasePrice float64   `yaml:"base_price" json:"base_price"`
}

type DistanceRate struct {
	Type       DistanceTier `yaml:"type" json:"type"`
	Label      string       `yaml:"label" json:"label"`
	Multiplier float64      `yaml:"multiplier" json:"multiplier"`
	BaseFee    float64      `yaml:"base_fee" json:"base_fee"`
}

type FloorRate struct {
	Level  string  `yaml:"level" json:"level"`
	Label  string  `yaml:"label" json:"label"`
	Charge float64 `yaml:"charge" json:"charge"`
}

type ServiceRate struct {
	Type  string  `yaml:"type" json:"type"`
	Label string  `yaml:"label" json:"label"`
	Fee   float64 `yaml:"fee" json:"fee"`
}

// RateCard holds every price the estimator uses.
type RateCard struct {
	Currency  string         `yaml:"currency" json:"currency"`
	Rooms     []RoomRate     `yaml:"rooms" json:"rooms"`
	Trucks    []TruckRate    `yaml:"trucks" json:"trucks"`
	Distances []DistanceRate `yaml:"distances" json:"distances"`
	Floors    []FloorRate    `yaml:"floors" json:"floors"`
	Services  []ServiceRate  `yaml:"services" json:"services"`
}

// DefaultRateCard parses the embedded rate card.
func DefaultRateCard() (*RateCard, error) {
	return ParseRateCard(defaultRateCard)
}

// LoadRateCard reads a rate card from path, or the embedded one when path is empty.
func LoadRateCard(path string) (*RateCard, error) {
	if path == "" {
		return DefaultRateCard()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("moving: read rate card: %w", err)
	}
	return ParseRateCard(data)
}

// ParseRateCard decodes and validates a YAML rate card.
func ParseRateCard(data []byte) (*RateCard, error) {
	var rc RateCard
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("moving: parse rate card: %w", err)
	}
	if err := rc.validate(); err != nil {
		return nil, err
	}
	return &rc, nil
}

func (rc *RateCard) validate() error {
	var errs []error
	for _, rt := range RoomTypes {
		if _, ok := rc.room(rt); !ok {
			errs = append(errs, fmt.Errorf("room %q missing", rt))
		}
	}
	for _, tt := range []TruckType{TruckSmall, TruckMedium, TruckLarge, TruckXLarge} {
		if _, ok := rc.truck(tt); !ok {
			errs = append(errs, fmt.Errorf("truck %q missing", tt))
		}
	}
	for _, dt := range []DistanceTier{DistanceLocal, DistanceNearCity, DistanceBetweenCities, DistanceLong} {
		if _, ok := rc.distance(dt); !ok {
			errs = append(errs, fmt.Errorf("distance %q missing", dt))
		}
	}
	if _, ok := rc.floor(FloorGround); !ok {
		errs = append(errs, fmt.Errorf("floor %q missing", FloorGround))
	}
	if len(errs) > 0 {
		return fmt.Errorf("moving: invalid rate card: %w", errors.Join(errs...))
	}
	return nil
}

func (rc *RateCard) room(t RoomType) (RoomRate, bool) {
	for _, r := range rc.Rooms {
		if r.Type == t {
			return r, true
		}
	}
	return RoomRate{}, false
}

func (rc *RateCard) truck(t TruckType) (TruckRate, bool) {
	for _, r := range rc.Trucks {
		if r.Type == t {
			return r, true
		}
	}
	return TruckRate{}, false
}

func (rc *RateCard) distance(t DistanceTier) (DistanceRate, bool) {
	for _, r := range rc.Distances {
		if r.Type == t {
			return r, true
		}
	}
	return DistanceRate{}, false
}

func (rc *RateCard) floor(level string) (FloorRate, bool) {
	for _, r := range rc.Floors {
		if r.Level == level {
			return r, true
		}
	}
	return FloorRate{}, false
}

func (rc *RateCard) service(t string) (ServiceRate, bool) {
	for _, r := range rc.Services {
		if r.Type == t {
			return r, true
		}
	}
	return ServiceRate{}, false
}
