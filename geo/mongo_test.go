package geo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nearhelp/nearhelp-api/schema"
)

type MongoIndexTestSuite struct {
	suite.Suite
	connURI      string
	testDBName   string
	mongoClient  *mongo.Client
	testDatabase *mongo.Database
	index        *MongoIndex
}

func NewMongoIndexTestSuite(connURI, dbName string) *MongoIndexTestSuite {
	return &MongoIndexTestSuite{
		connURI:    connURI,
		testDBName: dbName,
	}
}

func (s *MongoIndexTestSuite) SetupSuite() {
	opts := options.Client().ApplyURI(s.connURI)
	mongoClient, err := mongo.NewClient(opts)
	if nil != err {
		s.T().Fatalf("create mongo client with error: %s", err)
	}

	if err := mongoClient.Connect(context.Background()); nil != err {
		s.T().Fatalf("connect mongo database with error: %s", err.Error())
	}

	s.mongoClient = mongoClient
	s.testDatabase = mongoClient.Database(s.testDBName)
	s.index = NewMongoIndex(mongoClient, s.testDBName)
}

func (s *MongoIndexTestSuite) SetupTest() {
	// make sure every test is run with a clean environment
	if err := s.testDatabase.Drop(context.Background()); err != nil {
		s.T().Fatal(err)
	}
	schema.NewMongoDBIndexer(s.connURI, s.testDBName).IndexAll()
}

func (s *MongoIndexTestSuite) TearDownSuite() {
	_ = s.testDatabase.Drop(context.Background())
	_ = s.mongoClient.Disconnect(context.Background())
}

func (s *MongoIndexTestSuite) TestNearbySamePoint() {
	ctx := context.Background()
	s.NoError(s.index.Put(ctx, KindVolunteer, "vol-a", amman))

	hits, err := s.index.Nearby(ctx, Query{Kind: KindVolunteer, Center: amman, MaxDistance: 1000})
	s.NoError(err)
	s.Len(hits, 1)
	s.Equal("vol-a", hits[0].ID)
	s.InDelta(0, hits[0].Distance, 0.001)
}

func (s *MongoIndexTestSuite) TestNearbyOrderedWithinRange() {
	ctx := context.Background()
	s.NoError(s.index.Put(ctx, KindVolunteer, "far", offset(amman, 4000)))
	s.NoError(s.index.Put(ctx, KindVolunteer, "near", offset(amman, 300)))
	s.NoError(s.index.Put(ctx, KindVolunteer, "outside", offset(amman, 6000)))
	s.NoError(s.index.Put(ctx, KindRequest, "req-1", amman))

	hits, err := s.index.Nearby(ctx, Query{Kind: KindVolunteer, Center: amman, MaxDistance: 5000})
	s.NoError(err)
	s.Len(hits, 2)
	s.Equal("near", hits[0].ID)
	s.Equal("far", hits[1].ID)
	for _, h := range hits {
		s.Equal(Haversine(amman, h.Location), h.Distance)
	}
}

func (s *MongoIndexTestSuite) TestPutIsLastWriteWins() {
	ctx := context.Background()
	s.NoError(s.index.Put(ctx, KindVolunteer, "vol-a", offset(amman, 30000)))
	s.NoError(s.index.Put(ctx, KindVolunteer, "vol-a", amman))

	count, err := s.testDatabase.Collection(schema.GeoPointCollection).CountDocuments(ctx, map[string]interface{}{"ref_id": "vol-a"})
	s.NoError(err)
	s.Equal(int64(1), count)

	hits, err := s.index.Nearby(ctx, Query{Kind: KindVolunteer, Center: amman, MaxDistance: 100})
	s.NoError(err)
	s.Len(hits, 1)
}

func (s *MongoIndexTestSuite) TestRemove() {
	ctx := context.Background()
	s.NoError(s.index.Put(ctx, KindRequest, "req-1", amman))
	s.NoError(s.index.Remove(ctx, KindRequest, "req-1"))

	hits, err := s.index.Nearby(ctx, Query{Kind: KindRequest, Center: amman, MaxDistance: 1000})
	s.NoError(err)
	s.Empty(hits)
}

func (s *MongoIndexTestSuite) TestFilterAndLimit() {
	ctx := context.Background()
	s.NoError(s.index.Put(ctx, KindVolunteer, "a", offset(amman, 100)))
	s.NoError(s.index.Put(ctx, KindVolunteer, "b", offset(amman, 200)))
	s.NoError(s.index.Put(ctx, KindVolunteer, "c", offset(amman, 300)))

	hits, err := s.index.Nearby(ctx, Query{Kind: KindVolunteer, Center: amman, MaxDistance: 1000, Limit: 2})
	s.NoError(err)
	s.Len(hits, 2)
	s.Equal("a", hits[0].ID)

	hits, err = s.index.Nearby(ctx, Query{
		Kind:        KindVolunteer,
		Center:      amman,
		MaxDistance: 1000,
		Limit:       1,
		Filter:      func(h Hit) bool { return h.ID != "a" },
	})
	s.NoError(err)
	s.Len(hits, 1)
	s.Equal("b", hits[0].ID)
}

func TestMongoIndexTestSuite(t *testing.T) {
	connURI := os.Getenv("NEARHELP_TEST_MONGO_CONN")
	if connURI == "" {
		t.Skip("Skip mongo index tests due to missing mongo connection")
	}
	suite.Run(t, NewMongoIndexTestSuite(connURI, "test-geo"))
}
