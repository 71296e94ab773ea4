package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

// FindZone looks up a zone of the tenant. A missing zone is reported with ok=false.
func (r *MongoDBRepository) FindZone(ctx context.Context, tenantID, zoneID string) (models.Zone, bool, error) {
	var zone models.Zone
	err := r.db.Collection(zonesCollection).
		FindOne(ctx, bson.D{{Key: "_id", Value: zoneID}, {Key: "tenant_id", Value: tenantID}}).
		Decode(&zone)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Zone{}, false, nil
	}
	if err != nil {
		return models.Zone{}, false, fmt.Errorf("failed to find zone %s: %w", zoneID, err)
	}
	return zone, true, nil
}

// ListZones returns every zone of the tenant.
func (r *MongoDBRepository) ListZones(ctx context.Context, tenantID string) ([]models.Zone, error) {
	cursor, err := r.db.Collection(zonesCollection).Find(ctx, bson.D{{Key: "tenant_id", Value: tenantID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	defer cursor.Close(ctx)

	var zones []models.Zone
	if err := cursor.All(ctx, &zones); err != nil {
		return nil, fmt.Errorf("failed to decode zones: %w", err)
	}
	return zones, nil
}

// ListTenants returns every registered tenant ordered by id.
func (r *MongoDBRepository) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(tenantsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer cursor.Close(ctx)

	var tenants []models.Tenant
	if err := cursor.All(ctx, &tenants); err != nil {
		return nil, fmt.Errorf("failed to decode tenants: %w", err)
	}
	return tenants, nil
}
