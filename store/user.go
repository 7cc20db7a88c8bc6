package store

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

func unavailable(err error) error {
	return fault.Wrap(fault.Unavailable, err, "mongo unavailable")
}

// CreateUser registers a user into the matching core
func (m *mongoDB) CreateUser(ctx context.Context, u *schema.User) error {
	if u.ID == "" {
		return fault.New(fault.InvalidInput, "user id is required")
	}
	if !u.Role.Valid() {
		return schema.ErrInvalidRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := m.users().InsertOne(ctx, u); err != nil {
		if isDuplicateKey(err) {
			return ErrUserExists
		}
		log.WithField("prefix", mongoLogPrefix).Errorf("create user with error: %s", err)
		return unavailable(err)
	}

	return nil
}

// GetUser returns a user of a given id
func (m *mongoDB) GetUser(ctx context.Context, id string) (*schema.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u schema.User
	if err := m.users().FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, unavailable(err)
	}

	return &u, nil
}

// GetUsers returns the known users of given ids in the order of ids
func (m *mongoDB) GetUsers(ctx context.Context, ids []string) ([]schema.User, error) {
	if len(ids) == 0 {
		return []schema.User{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := m.users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, unavailable(err)
	}
	defer cur.Close(ctx)

	found := make(map[string]schema.User, len(ids))
	for cur.Next(ctx) {
		var u schema.User
		if err := cur.Decode(&u); err != nil {
			log.WithField("prefix", mongoLogPrefix).Errorf("decode user with error: %s", err)
			return nil, fault.Wrap(fault.Internal, err, "decode user")
		}
		found[u.ID] = u
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable(err)
	}

	users := make([]schema.User, 0, len(found))
	for _, id := range ids {
		if u, ok := found[id]; ok {
			users = append(users, u)
			delete(found, id)
		}
	}

	log.WithField("prefix", mongoLogPrefix).Debugf("get %d users from %d ids", len(users), len(ids))
	return users, nil
}

func (m *mongoDB) updateUser(ctx context.Context, id string, set bson.M) (*schema.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC()

	var u schema.User
	err := m.users().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		log.WithFields(log.Fields{
			"prefix":  mongoLogPrefix,
			"user_id": id,
			"error":   err,
		}).Error("update user")
		return nil, unavailable(err)
	}

	return &u, nil
}

// UpdateUserLocation sets the last known location of a user. The last
// write wins.
func (m *mongoDB) UpdateUserLocation(ctx context.Context, id string, loc schema.Location) (*schema.User, error) {
	if err := schema.ValidateLocation(loc); err != nil {
		return nil, err
	}

	return m.updateUser(ctx, id, bson.M{
		"location":            schema.NewGeoPoint(loc),
		"location_updated_at": time.Now().UTC(),
	})
}

func (m *mongoDB) UpdateDeviceToken(ctx context.Context, id, token string) error {
	_, err := m.updateUser(ctx, id, bson.M{"device_token": token})
	return err
}

// DeactivateUser soft deletes a user
func (m *mongoDB) DeactivateUser(ctx context.Context, id string) (*schema.User, error) {
	return m.updateUser(ctx, id, bson.M{"active": false})
}

// ListUsers returns a page of users, optionally of a single role, and the
// total number of matching users
func (m *mongoDB) ListUsers(ctx context.Context, role schema.Role, page, limit int) ([]schema.User, int, error) {
	page, limit = NormalizePage(page, limit)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}

	total, err := m.users().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, unavailable(err)
	}

	opts := options.Find().
		SetSort(bson.D{{"created_at", -1}, {"_id", 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := m.users().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, unavailable(err)
	}
	defer cur.Close(ctx)

	users := make([]schema.User, 0)
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, unavailable(err)
	}

	return users, int(total), nil
}
