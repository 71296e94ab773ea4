package intake

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/domain/models"
	"github.com/mamadbah2/haccp/internal/metrics"
	"github.com/mamadbah2/haccp/internal/service/conformity"
)

// Evaluator classifies a measured value for a zone type.
type Evaluator interface {
	Evaluate(zoneType string, value float64) bool
}

var _ Evaluator = (*conformity.Policy)(nil)

// Listing limits for Recent.
const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 200
)

// Options tune intake behaviour.
type Options struct {
	// AllowUntenanted admits writes without a tenant. It exists for legacy
	// pre-authentication clients and is off by default.
	AllowUntenanted bool
}

// Service validates incoming observations, classifies them and appends them to the log.
type Service struct {
	store    models.ObservationStore
	zones    models.ZoneDirectory
	eval     Evaluator
	opts     Options
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewService wires an intake service.
func NewService(store models.ObservationStore, zones models.ZoneDirectory, eval Evaluator, opts Options, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		zones:    zones,
		eval:     eval,
		opts:     opts,
		validate: newValidator(),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type temperatureFields struct {
	ZoneID string   `json:"zone_id" validate:"required"`
	Value  *float64 `json:"value" validate:"required"`
}

type cleaningFields struct {
	ZoneID      string `json:"zone_id" validate:"required"`
	Responsible string `json:"responsible" validate:"required"`
}

type deliveryFields struct {
	Supplier string `json:"supplier" validate:"required"`
}

// Ingest validates one observation of the given kind and appends it to the log.
// Nothing is written when an error is returned.
func (s *Service) Ingest(ctx context.Context, tenantID string, kind models.ObservationKind, in models.ObservationInput) (models.Observation, error) {
	obs, err := s.build(ctx, strings.TrimSpace(tenantID), kind, normalize(in))
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			s.metrics.ObservationRejected(string(kind), verr.Field)
			s.logger.Debug("observation rejected", zap.String("kind", string(kind)), zap.String("field", verr.Field), zap.String("tenant_id", tenantID))
		}
		return models.Observation{}, err
	}

	if err := s.store.Append(ctx, obs); err != nil {
		return models.Observation{}, fmt.Errorf("append %s observation: %w", kind, err)
	}

	s.metrics.ObservationIngested(string(kind), obs.Conforme)
	s.logger.Info("observation ingested",
		zap.String("id", obs.ID),
		zap.String("tenant_id", obs.TenantID),
		zap.String("kind", string(obs.Kind)),
		zap.Bool("conforme", obs.Conforme))

	return obs, nil
}

// Recent returns the tenant's latest observations of kind, most recent first.
// A zero limit means DefaultRecentLimit; larger limits are capped at MaxRecentLimit.
func (s *Service) Recent(ctx context.Context, tenantID string, kind models.ObservationKind, limit int) ([]models.Observation, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" && !s.opts.AllowUntenanted {
		return nil, &models.ValidationError{Field: "tenant_id"}
	}
	if _, ok := models.ParseObservationKind(string(kind)); !ok {
		return nil, &models.ValidationError{Field: "kind", Reason: fmt.Sprintf("%q is not supported", kind)}
	}
	switch {
	case limit < 0:
		return nil, &models.ValidationError{Field: "limit", Reason: "must not be negative"}
	case limit == 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}

	observations, err := s.store.ListRecent(ctx, tenantID, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent %s observations: %w", kind, err)
	}
	if observations == nil {
		observations = []models.Observation{}
	}
	return observations, nil
}

func (s *Service) build(ctx context.Context, tenantID string, kind models.ObservationKind, in models.ObservationInput) (models.Observation, error) {
	if tenantID == "" && !s.opts.AllowUntenanted {
		return models.Observation{}, &models.ValidationError{Field: "tenant_id"}
	}

	var required any
	switch kind {
	case models.KindTemperature:
		required = temperatureFields{ZoneID: in.ZoneID, Value: in.Value}
	case models.KindCleaning:
		required = cleaningFields{ZoneID: in.ZoneID, Responsible: in.Responsible}
	case models.KindDelivery:
		required = deliveryFields{Supplier: in.Supplier}
	default:
		return models.Observation{}, &models.ValidationError{Field: "kind", Reason: fmt.Sprintf("%q is not supported", kind)}
	}
	if err := s.checkRequired(required); err != nil {
		return models.Observation{}, err
	}

	if in.Value != nil && (math.IsNaN(*in.Value) || math.IsInf(*in.Value, 0)) {
		return models.Observation{}, &models.ValidationError{Field: "value", Reason: "must be a finite number"}
	}

	var zone models.Zone
	if in.ZoneID != "" {
		found, ok, err := s.zones.FindZone(ctx, tenantID, in.ZoneID)
		if err != nil {
			return models.Observation{}, fmt.Errorf("resolve zone %s: %w", in.ZoneID, err)
		}
		if !ok {
			return models.Observation{}, &models.ValidationError{Field: "zone_id", Reason: "does not exist for this tenant"}
		}
		zone = found
	}

	ts := s.now().UTC()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}

	obs := models.Observation{
		ID:          s.newID(),
		TenantID:    tenantID,
		Kind:        kind,
		ZoneID:      in.ZoneID,
		Timestamp:   ts,
		Responsible: in.Responsible,
		PhotoURL:    in.PhotoURL,
		Product:     in.Product,
	}

	switch kind {
	case models.KindTemperature:
		obs.Value = in.Value
		obs.Conforme = s.eval.Evaluate(zone.Type, *in.Value)
	case models.KindCleaning:
		clean := true
		if in.Clean != nil {
			clean = *in.Clean
		}
		obs.TaskID = in.TaskID
		obs.Clean = &clean
		obs.Conforme = clean
	case models.KindDelivery:
		obs.Supplier = in.Supplier
		obs.Value = in.Value
		obs.Conforme = true
		if in.Value != nil {
			obs.Conforme = s.eval.Evaluate(zone.Type, *in.Value)
		}
	}

	if in.Conforme != nil && *in.Conforme != obs.Conforme {
		s.logger.Debug("client conformity flag overridden",
			zap.String("kind", string(kind)),
			zap.Bool("client", *in.Conforme),
			zap.Bool("server", obs.Conforme))
	}

	return obs, nil
}

func (s *Service) checkRequired(fields any) error {
	err := s.validate.Struct(fields)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &models.ValidationError{Field: verrs[0].Field()}
	}
	return fmt.Errorf("validate fields: %w", err)
}

func normalize(in models.ObservationInput) models.ObservationInput {
	in.ZoneID = strings.TrimSpace(in.ZoneID)
	in.Responsible = strings.TrimSpace(in.Responsible)
	in.Product = strings.TrimSpace(in.Product)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	in.TaskID = strings.TrimSpace(in.TaskID)
	in.Supplier = strings.TrimSpace(in.Supplier)
	return in
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
