package models

import "context"

// Tenant is a registered business.
type Tenant struct {
	ID   string `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Zone is a monitored location whose type selects a conformity bound.
type Zone struct {
	ID       string `bson:"_id" json:"id"`
	TenantID string `bson:"tenant_id" json:"tenant_id"`
	Name     string `bson:"name" json:"name"`
	Type     string `bson:"type" json:"type"`
}

// ZoneDirectory resolves zone references. FindZone reports ok=false when the zone does
// not exist for the tenant; that is not an error.
type ZoneDirectory interface {
	FindZone(ctx context.Context, tenantID, zoneID string) (Zone, bool, error)
	ListZones(ctx context.Context, tenantID string) ([]Zone, error)
}

// TenantDirectory enumerates the tenants the scheduler produces reports for.
type TenantDirectory interface {
	ListTenants(ctx context.Context) ([]Tenant, error)
}
