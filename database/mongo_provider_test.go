package database_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// newTestMongo 每个测试使用独立数据库，结束时删除，未设置 MONGO_URI 时跳过
func newTestMongo(t *testing.T) *database.MongoProvider {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := "gallery_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	p, err := database.NewMongoProvider(ctx, uri, dbName, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.Migrate(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := mongo.Connect(options.Client().ApplyURI(uri))
		if err == nil {
			_ = client.Database(dbName).Drop(ctx)
			_ = client.Disconnect(ctx)
		}
		_ = p.Close(ctx)
	})
	return p
}

func TestMongoProvider(t *testing.T) {
	runProviderSuite(t, func(t *testing.T) database.Provider {
		return newTestMongo(t)
	})
}

func TestMongoProvider_ObjectIDs(t *testing.T) {
	p := newTestMongo(t)
	ctx := context.Background()

	img := newImage("images/oid.png", "oid.png", "", nil, time.Now())
	require.NoError(t, p.Insert(ctx, img))

	oid, err := bson.ObjectIDFromHex(img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, oid.Hex())

	got, err := p.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Tags)
	assert.Equal(t, time.UTC, got.UploadDate.Location())
}

func TestMongoProvider_PingAndName(t *testing.T) {
	p := newTestMongo(t)
	assert.NoError(t, p.Ping(context.Background()))
	assert.Equal(t, "mongo", p.Name())
}

func TestNewMongoProvider_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := database.NewMongoProvider(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=500", "gallery", zap.NewNop())
	require.Error(t, err)
	assert.True(t, database.IsKind(err, database.KindUnavailable), "got %v", err)
}
