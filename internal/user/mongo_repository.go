package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/database"
)

// mongoUser is the stored document. The UUID is kept as its string form in _id.
type mongoUser struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// MongoRepository stores users in a MongoDB collection
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(database.UsersCollection)}
}

func (r *MongoRepository) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	u := &User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.coll.InsertOne(ctx, toMongoUser(u)); err != nil {
		return nil, insertError(err)
	}
	return u, nil
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (r *MongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{
			"password_hash": passwordHash,
			"updated_at":    time.Now().UTC(),
		}},
	)
	return updateResult(res, err)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, findError(err)
	}
	return fromMongoUser(&doc)
}

func insertError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return fmt.Errorf("failed to create user: %w", err)
}

func findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to get user: %w", err)
}

func updateResult(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func toMongoUser(u *User) *mongoUser {
	return &mongoUser{
		ID:           u.ID.String(),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func fromMongoUser(d *mongoUser) (*User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q in store: %w", d.ID, err)
	}
	return &User{
		ID:           id,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

var _ Repository = (*MongoRepository)(nil)
