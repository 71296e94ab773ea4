package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/haccp/internal/config"
	"github.com/mamadbah2/haccp/internal/domain/models"
)

// Directory serves zones and tenants maintained in a Google Sheet.
//
// The zones range holds rows of tenant_id, zone_id, name, type. The tenants range
// holds rows of tenant_id, name. Rows with an empty id are ignored.
type Directory struct {
	service       *sheetsapi.Service
	spreadsheetID string
	zonesRange    string
	tenantsRange  string
	logger        *zap.Logger
}

// NewDirectory builds a Google Sheets backed directory.
func NewDirectory(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger, opts ...option.ClientOption) (*Directory, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id must not be empty")
	}

	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}
	opts = append(opts, option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope))

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return newDirectory(service, cfg, logger), nil
}

func newDirectory(service *sheetsapi.Service, cfg config.SheetsConfig, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		zonesRange:    cfg.ZonesRange,
		tenantsRange:  cfg.TenantsRange,
		logger:        logger,
	}
}

// FindZone looks up a zone of the tenant. A missing zone is reported with ok=false.
func (d *Directory) FindZone(ctx context.Context, tenantID, zoneID string) (models.Zone, bool, error) {
	zones, err := d.ListZones(ctx, tenantID)
	if err != nil {
		return models.Zone{}, false, err
	}
	for _, z := range zones {
		if z.ID == zoneID {
			return z, true, nil
		}
	}
	return models.Zone{}, false, nil
}

// ListZones returns every zone row of the tenant.
func (d *Directory) ListZones(ctx context.Context, tenantID string) ([]models.Zone, error) {
	rows, err := d.readRange(ctx, d.zonesRange)
	if err != nil {
		return nil, err
	}

	var zones []models.Zone
	for i, row := range rows {
		zone := models.Zone{
			TenantID: cell(row, 0),
			ID:       cell(row, 1),
			Name:     cell(row, 2),
			Type:     cell(row, 3),
		}
		if zone.ID == "" || zone.TenantID == "" {
			d.logger.Debug("skipping incomplete zone row", zap.Int("row", i))
			continue
		}
		if zone.TenantID == tenantID {
			zones = append(zones, zone)
		}
	}
	return zones, nil
}

// ListTenants returns every tenant row.
func (d *Directory) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := d.readRange(ctx, d.tenantsRange)
	if err != nil {
		return nil, err
	}

	var tenants []models.Tenant
	for _, row := range rows {
		t := models.Tenant{ID: cell(row, 0), Name: cell(row, 1)}
		if t.ID == "" {
			continue
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}

func (d *Directory) readRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := d.service.Spreadsheets.Values.Get(d.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
