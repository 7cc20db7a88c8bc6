package geo

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nearhelp/nearhelp-api/fault"
	"github.com/nearhelp/nearhelp-api/schema"
)

const (
	geoLogPrefix   = "geo"
	defaultTimeout = 10 * time.Second

	// mongo measures $nearSphere distances on its own sphere, so the index
	// is asked for a slightly larger radius and the result is trimmed
	// with Haversine
	distanceSlack = 1.01
)

// MongoIndex is an Index backed by a 2dsphere index on the geo_points
// collection
type MongoIndex struct {
	client   *mongo.Client
	database string
}

func NewMongoIndex(client *mongo.Client, database string) *MongoIndex {
	return &MongoIndex{
		client:   client,
		database: database,
	}
}

func (m *MongoIndex) collection() *mongo.Collection {
	return m.client.Database(m.database).Collection(schema.GeoPointCollection)
}

// Put inserts or moves a point. The last write wins.
func (m *MongoIndex) Put(ctx context.Context, kind Kind, id string, loc schema.Location) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	if err := schema.ValidateLocation(loc); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := m.collection().UpdateOne(ctx,
		bson.M{"kind": string(kind), "ref_id": id},
		bson.M{"$set": bson.M{
			"location":   schema.NewGeoPoint(loc),
			"updated_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.WithFields(log.Fields{
			"prefix": geoLogPrefix,
			"kind":   kind,
			"ref_id": id,
			"error":  err,
		}).Error("put geo point")
		return fault.Wrap(fault.Unavailable, err, "geo index unavailable")
	}

	return nil
}

func (m *MongoIndex) Remove(ctx context.Context, kind Kind, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := m.collection().DeleteOne(ctx, bson.M{"kind": string(kind), "ref_id": id}); err != nil {
		log.WithFields(log.Fields{
			"prefix": geoLogPrefix,
			"kind":   kind,
			"ref_id": id,
			"error":  err,
		}).Error("remove geo point")
		return fault.Wrap(fault.Unavailable, err, "geo index unavailable")
	}

	return nil
}

func (m *MongoIndex) Nearby(ctx context.Context, q Query) ([]Hit, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find()
	// without a filter the index order is final, so the cap can be pushed down
	if q.Filter == nil && q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := m.collection().Find(ctx, nearbyQuery(q), opts)
	if err != nil {
		log.WithField("prefix", geoLogPrefix).Errorf("query nearby %s with error: %s", q.Kind, err)
		return nil, fault.Wrap(fault.Unavailable, err, "geo index unavailable")
	}
	defer cur.Close(ctx)

	candidates := make([]Hit, 0)
	for cur.Next(ctx) {
		var p schema.GeoPoint
		if err := cur.Decode(&p); err != nil {
			log.WithField("prefix", geoLogPrefix).Errorf("nearby decode record with error: %s", err)
			return nil, fault.Wrap(fault.Internal, err, "decode geo point")
		}

		loc := p.Location.Location()
		if loc == nil {
			continue
		}
		candidates = append(candidates, Hit{ID: p.RefID, Location: *loc})
	}
	if err := cur.Err(); err != nil {
		return nil, fault.Wrap(fault.Unavailable, err, "geo index unavailable")
	}

	hits := collect(q, candidates)
	log.WithField("prefix", geoLogPrefix).Debugf("nearby %s query gets %d of %d points", q.Kind, len(hits), len(candidates))

	return hits, nil
}

// $nearSphere returns documents from nearest to farthest
// reference: https://docs.mongodb.com/manual/reference/operator/query/nearSphere/#op._S_nearSphere
func nearbyQuery(q Query) bson.D {
	return bson.D{
		{"kind", string(q.Kind)},
		{"location", bson.D{{
			"$nearSphere",
			bson.D{
				{"$geometry", bson.D{
					{"type", schema.GeoJSONPoint},
					{"coordinates", bson.A{q.Center.Longitude, q.Center.Latitude}},
				}},
				{"$maxDistance", q.MaxDistance * distanceSlack},
			},
		}}},
	}
}
