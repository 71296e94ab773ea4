package models

import (
	"context"
	"time"
)

// ObservationKind discriminates the supported compliance events.
type ObservationKind string

const (
	KindTemperature ObservationKind = "temperature"
	KindCleaning    ObservationKind = "cleaning"
	KindDelivery    ObservationKind = "delivery"
)

// ParseObservationKind maps a raw kind (as found in URLs) to a known ObservationKind.
func ParseObservationKind(raw string) (ObservationKind, bool) {
	switch ObservationKind(raw) {
	case KindTemperature, KindCleaning, KindDelivery:
		return ObservationKind(raw), true
	}
	return "", false
}

// Observation is one append-only compliance event. Kind-specific fields are left
// at their zero value when they do not apply.
type Observation struct {
	ID          string          `bson:"_id" json:"id"`
	TenantID    string          `bson:"tenant_id" json:"tenant_id"`
	Kind        ObservationKind `bson:"kind" json:"kind"`
	ZoneID      string          `bson:"zone_id,omitempty" json:"zone_id,omitempty"`
	Timestamp   time.Time       `bson:"timestamp" json:"timestamp"`
	Responsible string          `bson:"responsible,omitempty" json:"responsible,omitempty"`
	PhotoURL    string          `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Conforme    bool            `bson:"conforme" json:"conforme"`

	// Temperature readings and deliveries.
	Value   *float64 `bson:"value,omitempty" json:"value,omitempty"`
	Product string   `bson:"product,omitempty" json:"product,omitempty"`

	// Cleaning events.
	TaskID string `bson:"task_id,omitempty" json:"task_id,omitempty"`
	Clean  *bool  `bson:"clean,omitempty" json:"clean,omitempty"`

	// Deliveries.
	Supplier string `bson:"supplier,omitempty" json:"supplier,omitempty"`
}

// ObservationInput carries the raw client fields of an observation before validation.
// Conforme is accepted for compatibility but never trusted.
type ObservationInput struct {
	ZoneID      string     `json:"zone_id"`
	Value       *float64   `json:"value"`
	Responsible string     `json:"responsible"`
	Product     string     `json:"product"`
	PhotoURL    string     `json:"photo_url"`
	TaskID      string     `json:"task_id"`
	Clean       *bool      `json:"clean"`
	Supplier    string     `json:"supplier"`
	Conforme    *bool      `json:"conforme"`
	Timestamp   *time.Time `json:"timestamp"`
}

// ObservationStore is the append-only observation log.
type ObservationStore interface {
	Append(ctx context.Context, obs Observation) error
	// ListByPeriod returns the tenant's observations with start <= timestamp < end.
	ListByPeriod(ctx context.Context, tenantID string, start, end time.Time) ([]Observation, error)
	// ListRecent returns at most limit observations of kind, most recent first.
	ListRecent(ctx context.Context, tenantID string, kind ObservationKind, limit int) ([]Observation, error)
}
