package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

func ns(mt *mtest.T, collection string) string {
	return mt.DB.Name() + "." + collection
}

func TestAppend(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	v := 3.2
	obs := models.Observation{
		ID:        "obs-1",
		TenantID:  "resto-a",
		Kind:      models.KindTemperature,
		ZoneID:    "frigo-1",
		Timestamp: time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC),
		Value:     &v,
		Conforme:  true,
	}

	mt.Run("inserted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := newRepository(mt.DB, nil)

		require.NoError(mt, repo.Append(context.Background(), obs))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "insert", evt.CommandName)
	})

	mt.Run("duplicate id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))
		repo := newRepository(mt.DB, nil)

		err := repo.Append(context.Background(), obs)

		var conflict *models.ConflictError
		require.ErrorAs(mt, err, &conflict)
		assert.Equal(mt, "id", conflict.Field)
	})

	mt.Run("command failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
		}))
		repo := newRepository(mt.DB, nil)

		err := repo.Append(context.Background(), obs)

		require.Error(mt, err)
		var conflict *models.ConflictError
		assert.False(mt, errors.As(err, &conflict))
	})
}

func TestListByPeriod(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	mt.Run("decodes batch", func(mt *mtest.T) {
		ts := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, observationsCollection), mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "obs-1"},
				{Key: "tenant_id", Value: "resto-a"},
				{Key: "kind", Value: "temperature"},
				{Key: "zone_id", Value: "frigo-1"},
				{Key: "timestamp", Value: ts},
				{Key: "conforme", Value: false},
				{Key: "value", Value: 6.0},
			},
			bson.D{
				{Key: "_id", Value: "obs-2"},
				{Key: "tenant_id", Value: "resto-a"},
				{Key: "kind", Value: "cleaning"},
				{Key: "zone_id", Value: "frigo-1"},
				{Key: "timestamp", Value: ts.Add(-time.Hour)},
				{Key: "conforme", Value: true},
				{Key: "task_id", Value: "sols"},
				{Key: "clean", Value: true},
			},
		))
		repo := newRepository(mt.DB, nil)

		got, err := repo.ListByPeriod(context.Background(), "resto-a", start, end)
		require.NoError(mt, err)
		require.Len(mt, got, 2)

		assert.Equal(mt, "obs-1", got[0].ID)
		assert.Equal(mt, models.KindTemperature, got[0].Kind)
		assert.True(mt, ts.Equal(got[0].Timestamp))
		require.NotNil(mt, got[0].Value)
		assert.Equal(mt, 6.0, *got[0].Value)
		assert.False(mt, got[0].Conforme)

		assert.Equal(mt, models.KindCleaning, got[1].Kind)
		assert.Nil(mt, got[1].Value)
		require.NotNil(mt, got[1].Clean)
		assert.True(mt, *got[1].Clean)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		filter := evt.Command.Lookup("filter").Document()
		assert.Equal(mt, "resto-a", filter.Lookup("tenant_id").StringValue())
		_, err = filter.Lookup("timestamp").Document().LookupErr("$lt")
		assert.NoError(mt, err)
	})

	mt.Run("empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, observationsCollection), mtest.FirstBatch))
		repo := newRepository(mt.DB, nil)

		got, err := repo.ListByPeriod(context.Background(), "resto-a", start, end)
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("query failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "unauthorized",
		}))
		repo := newRepository(mt.DB, nil)

		_, err := repo.ListByPeriod(context.Background(), "resto-a", start, end)
		assert.Error(mt, err)
	})
}

func TestListRecent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("sorted and limited", func(mt *mtest.T) {
		ts := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, observationsCollection), mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "obs-9"},
				{Key: "tenant_id", Value: "resto-a"},
				{Key: "kind", Value: "delivery"},
				{Key: "timestamp", Value: ts},
				{Key: "conforme", Value: true},
				{Key: "supplier", Value: "Metro"},
			},
		))
		repo := newRepository(mt.DB, nil)

		got, err := repo.ListRecent(context.Background(), "resto-a", models.KindDelivery, 50)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "Metro", got[0].Supplier)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		filter := evt.Command.Lookup("filter").Document()
		assert.Equal(mt, "resto-a", filter.Lookup("tenant_id").StringValue())
		assert.Equal(mt, "delivery", filter.Lookup("kind").StringValue())
		sort := evt.Command.Lookup("sort").Document()
		assert.Equal(mt, int32(-1), sort.Lookup("timestamp").Int32())
		assert.Equal(mt, int32(1), sort.Lookup("_id").Int32())
		assert.Equal(mt, int64(50), evt.Command.Lookup("limit").Int64())
	})

	mt.Run("query failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "unauthorized",
		}))
		repo := newRepository(mt.DB, nil)

		_, err := repo.ListRecent(context.Background(), "resto-a", models.KindCleaning, 10)
		assert.Error(mt, err)
	})
}

func TestFindZone(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, zonesCollection), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "frigo-1"},
			{Key: "tenant_id", Value: "resto-a"},
			{Key: "name", Value: "Frigo 1"},
			{Key: "type", Value: "frigo"},
		}))
		repo := newRepository(mt.DB, nil)

		zone, ok, err := repo.FindZone(context.Background(), "resto-a", "frigo-1")
		require.NoError(mt, err)
		assert.True(mt, ok)
		assert.Equal(mt, "Frigo 1", zone.Name)
		assert.Equal(mt, "frigo", zone.Type)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, zonesCollection), mtest.FirstBatch))
		repo := newRepository(mt.DB, nil)

		_, ok, err := repo.FindZone(context.Background(), "resto-a", "ghost")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}

func TestListZonesAndTenants(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("zones", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, zonesCollection), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "frigo-1"}, {Key: "tenant_id", Value: "resto-a"}, {Key: "name", Value: "Frigo 1"}, {Key: "type", Value: "frigo"}},
			bson.D{{Key: "_id", Value: "cf-1"}, {Key: "tenant_id", Value: "resto-a"}, {Key: "name", Value: "Chambre froide"}, {Key: "type", Value: "chambre froide"}},
		))
		repo := newRepository(mt.DB, nil)

		zones, err := repo.ListZones(context.Background(), "resto-a")
		require.NoError(mt, err)
		require.Len(mt, zones, 2)
		assert.Equal(mt, "Chambre froide", zones[1].Name)
	})

	mt.Run("tenants", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, tenantsCollection), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "resto-a"}, {Key: "name", Value: "Chez A"}},
			bson.D{{Key: "_id", Value: "resto-b"}, {Key: "name", Value: "Chez B"}},
		))
		repo := newRepository(mt.DB, nil)

		tenants, err := repo.ListTenants(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []models.Tenant{{ID: "resto-a", Name: "Chez A"}, {ID: "resto-b", Name: "Chez B"}}, tenants)
	})
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates both", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())
		repo := newRepository(mt.DB, nil)

		require.NoError(mt, repo.EnsureIndexes(context.Background()))
		assert.NoError(mt, repo.Close(context.Background()))
	})
}

func TestPing(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("up", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := newRepository(mt.DB, nil)

		require.NoError(mt, repo.Ping(context.Background()))
		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "ping", evt.CommandName)
	})

	mt.Run("down", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "unauthorized",
		}))
		repo := newRepository(mt.DB, nil)

		assert.Error(mt, repo.Ping(context.Background()))
	})
}
