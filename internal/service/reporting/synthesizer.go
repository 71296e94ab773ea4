package reporting

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

const (
	dateLayout   = "2006-01-02"
	titleFormat  = "Rapport HACCP - %s"
	noDataLine   = "Aucun relevé pour cette période."
	unknownZone  = "unknown"
	missingField = "?"
	emptyField   = "-"
)

// Synthesizer renders the monthly compliance document of a tenant from the
// observation log.
type Synthesizer struct {
	observations models.ObservationStore
	zones        models.ZoneDirectory
	loc          *time.Location
	logger       *zap.Logger
}

// NewSynthesizer wires a synthesizer. Periods and dates are interpreted in loc.
func NewSynthesizer(observations models.ObservationStore, zones models.ZoneDirectory, loc *time.Location, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Synthesizer{observations: observations, zones: zones, loc: loc, logger: logger}
}

type snapshot struct {
	observations []models.Observation
	zoneNames    map[string]string
}

// Synthesize queries then renders. Output is byte-identical for an unchanged
// observation set.
func (s *Synthesizer) Synthesize(ctx context.Context, tenantID string, period models.Period) (models.Document, error) {
	if !period.Valid() {
		return models.Document{}, &models.RenderError{Structural: true, Cause: models.ErrInvalidPeriod}
	}
	snap, err := s.query(ctx, tenantID, period)
	if err != nil {
		return models.Document{}, err
	}
	return s.render(tenantID, period, snap)
}

func (s *Synthesizer) query(ctx context.Context, tenantID string, period models.Period) (snapshot, error) {
	observations, err := s.observations.ListByPeriod(ctx, tenantID, period.Start(s.loc), period.End(s.loc))
	if err != nil {
		return snapshot{}, &models.QueryError{TenantID: tenantID, Period: period, Cause: err}
	}

	zones, err := s.zones.ListZones(ctx, tenantID)
	if err != nil {
		return snapshot{}, &models.QueryError{TenantID: tenantID, Period: period, Cause: fmt.Errorf("list zones: %w", err)}
	}
	names := make(map[string]string, len(zones))
	for _, z := range zones {
		names[z.ID] = z.Name
	}

	sort.SliceStable(observations, func(i, j int) bool {
		a, b := observations[i], observations[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID < b.ID
	})

	return snapshot{observations: observations, zoneNames: names}, nil
}

func (s *Synthesizer) render(tenantID string, period models.Period, snap snapshot) (models.Document, error) {
	if !period.Valid() {
		return models.Document{}, &models.RenderError{Structural: true, Cause: models.ErrInvalidPeriod}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, titleFormat+"\n", period)

	doc := models.Document{TenantID: tenantID, Period: period}
	for _, obs := range snap.observations {
		line, err := s.renderLine(obs, snap.zoneNames)
		if err != nil {
			doc.Skipped++
			s.logger.Warn("skipping observation in report",
				zap.String("tenant_id", tenantID),
				zap.String("period", period.String()),
				zap.Error(err))
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		doc.Lines++
	}

	if doc.Lines == 0 {
		buf.WriteString(noDataLine)
		buf.WriteByte('\n')
	}

	doc.Content = buf.Bytes()
	return doc, nil
}

func (s *Synthesizer) renderLine(obs models.Observation, zoneNames map[string]string) (string, error) {
	value := emptyField
	if obs.Value != nil {
		v := *obs.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", &models.RenderError{ObservationID: obs.ID, Cause: fmt.Errorf("value %v is not finite", v)}
		}
		value = decimal.NewFromFloat(v).StringFixed(1) + " °C"
	}
	if obs.Timestamp.IsZero() {
		return "", &models.RenderError{ObservationID: obs.ID, Cause: fmt.Errorf("missing timestamp")}
	}

	zone := unknownZone
	if name, ok := zoneNames[obs.ZoneID]; ok && name != "" {
		zone = name
	}

	status := "CONFORME"
	if !obs.Conforme {
		status = "NON CONFORME"
	}

	fields := []string{
		obs.Timestamp.In(s.loc).Format(dateLayout),
		orDefault(obs.Responsible, missingField),
		zone,
		orDefault(subject(obs), emptyField),
		value,
		status,
	}
	for i := range fields {
		fields[i] = sanitize(fields[i])
	}
	return strings.Join(fields, " | "), nil
}

// subject is the product or activity column of a report line.
func subject(obs models.Observation) string {
	switch obs.Kind {
	case models.KindCleaning:
		if obs.TaskID != "" {
			return "nettoyage " + obs.TaskID
		}
		return "nettoyage"
	case models.KindDelivery:
		if obs.Product != "" {
			return "livraison " + obs.Supplier + " / " + obs.Product
		}
		return "livraison " + obs.Supplier
	default:
		return obs.Product
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

var lineBreaker = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "|", "/")

func sanitize(field string) string {
	return lineBreaker.Replace(field)
}
