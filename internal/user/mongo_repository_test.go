package user

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/database"
)

func TestMongoUser_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	u := &User{ID: uuid.New(), Email: "erin@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}

	raw, err := bson.Marshal(toMongoUser(u))
	require.NoError(t, err)

	var doc mongoUser
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, u.ID.String(), doc.ID)

	back, err := fromMongoUser(&doc)
	require.NoError(t, err)
	assert.Equal(t, u, back)
}

func TestMongoUser_DocumentFields(t *testing.T) {
	raw, err := bson.Marshal(toMongoUser(&User{ID: uuid.New(), Email: "x@y.z", PasswordHash: "h"}))
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Contains(t, m, "_id")
	assert.Contains(t, m, "password_hash")
	assert.NotContains(t, m, "passwordhash")
}

func TestFromMongoUser_BadID(t *testing.T) {
	_, err := fromMongoUser(&mongoUser{ID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestMongoErrorMapping(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
	assert.ErrorIs(t, insertError(dup), ErrDuplicateEmail)

	other := errors.New("connection reset")
	err := insertError(other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)

	assert.ErrorIs(t, findError(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, findError(other), other)

	assert.ErrorIs(t, updateResult(&mongo.UpdateResult{MatchedCount: 0}, nil), ErrNotFound)
	assert.NoError(t, updateResult(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil))
	assert.ErrorIs(t, updateResult(nil, other), other)
}

// newMongoTestRepo connects to MONGO_TEST_URI and uses a throwaway database
func newMongoTestRepo(t *testing.T) *MongoRepository {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, uri)
	require.NoError(t, err)

	db := client.Database(fmt.Sprintf("authtest_%d", time.Now().UnixNano()))
	require.NoError(t, database.EnsureUserIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewMongoRepository(db)
}

func TestMongoRepository_Integration(t *testing.T) {
	repo := newMongoTestRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, " Lee@Example.com", "$2a$10$old")
	require.NoError(t, err)
	assert.Equal(t, "lee@example.com", u.Email)

	_, err = repo.Create(ctx, "lee@example.com", "$2a$10$other")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := repo.GetByEmail(ctx, "LEE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "$2a$10$new"))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$new", got.PasswordHash)

	_, err = repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, uuid.New(), "$2a$10$x"), ErrNotFound)
}
