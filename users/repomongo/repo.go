package mongouserrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jrsteele09/go-user-auth/users"
)

const usersCollection = "users"

var _ users.UserRepo = (*MongoUserRepo)(nil)

// MongoUserRepo stores user documents in a MongoDB collection. All auth-state
// mutations are single-document updates, which gives the per-record atomicity
// that the refresh rotation and revocation logic relies on.
type MongoUserRepo struct {
	collection *mongo.Collection
}

func New(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{collection: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique compound index enforcing one user per
// (username, email) pair. Call once at startup.
func (ur *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := ur.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "MongoUserRepo.EnsureIndexes")
	}
	return nil
}

func (ur *MongoUserRepo) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}

	if _, err := ur.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.ErrDuplicate
		}
		return errors.Wrap(err, "MongoUserRepo.Create InsertOne")
	}
	return nil
}

func (ur *MongoUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return ur.findOne(ctx, bson.M{"_id": id})
}

func (ur *MongoUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return ur.findOne(ctx, bson.M{"email": email})
}

func (ur *MongoUserRepo) GetByUsernameEmail(ctx context.Context, username, email string) (*users.User, error) {
	return ur.findOne(ctx, bson.M{"username": username, "email": email})
}

func (ur *MongoUserRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (*users.User, error) {
	if refreshToken == "" {
		return nil, users.ErrNotFound
	}
	return ur.findOne(ctx, bson.M{"refreshToken": refreshToken})
}

// SetRefreshToken filters on the token version the caller observed, not just
// the id: a concurrent RevokeSession bumps the version, so the losing writer
// matches no document instead of silently re-arming the revoked session.
func (ur *MongoUserRepo) SetRefreshToken(ctx context.Context, id string, token string, expectedVersion int) error {
	res, err := ur.collection.UpdateOne(ctx,
		bson.M{"_id": id, "tokenVersion": expectedVersion},
		bson.M{"$set": bson.M{"refreshToken": token}},
	)
	if err != nil {
		return errors.Wrap(err, "MongoUserRepo.SetRefreshToken UpdateOne")
	}
	if res.MatchedCount == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (ur *MongoUserRepo) RevokeSession(ctx context.Context, id string) error {
	res, err := ur.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc":   bson.M{"tokenVersion": 1},
			"$unset": bson.M{"refreshToken": ""},
		},
	)
	if err != nil {
		return errors.Wrap(err, "MongoUserRepo.RevokeSession UpdateOne")
	}
	if res.MatchedCount == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (ur *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*users.User, error) {
	var user users.User
	err := ur.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrNotFound
		}
		return nil, errors.Wrap(err, "MongoUserRepo.findOne")
	}
	return &user, nil
}
