package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

// Append inserts an observation. Observations are never updated; a reused id
// yields a ConflictError.
func (r *MongoDBRepository) Append(ctx context.Context, obs models.Observation) error {
	_, err := r.db.Collection(observationsCollection).InsertOne(ctx, obs)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &models.ConflictError{Field: "id", Cause: err}
		}
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	return nil
}

// ListByPeriod returns the tenant's observations with start <= timestamp < end,
// most recent first.
func (r *MongoDBRepository) ListByPeriod(ctx context.Context, tenantID string, start, end time.Time) ([]models.Observation, error) {
	filter := bson.D{
		{Key: "tenant_id", Value: tenantID},
		{Key: "timestamp", Value: bson.D{
			{Key: "$gte", Value: start},
			{Key: "$lt", Value: end},
		}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := r.db.Collection(observationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Observation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode observations: %w", err)
	}
	return out, nil
}

// ListRecent returns at most limit observations of kind for the tenant, most recent first.
func (r *MongoDBRepository) ListRecent(ctx context.Context, tenantID string, kind models.ObservationKind, limit int) ([]models.Observation, error) {
	filter := bson.D{
		{Key: "tenant_id", Value: tenantID},
		{Key: "kind", Value: kind},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.db.Collection(observationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent observations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Observation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode observations: %w", err)
	}
	return out, nil
}
