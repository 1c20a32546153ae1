package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MockAuthClient maps fake Firebase ID tokens to identities
type MockAuthClient struct {
	mu     sync.Mutex
	tokens map[string]*auth.Token
}

func NewMockAuthClient() *MockAuthClient {
	return &MockAuthClient{tokens: map[string]*auth.Token{}}
}

func (m *MockAuthClient) Add(idToken, uid, email, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[idToken] = &auth.Token{UID: uid, Claims: map[string]interface{}{"email": email, "name": name}}
}

func (m *MockAuthClient) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[idToken]
	if !ok {
		return nil, errors.New("invalid id token")
	}
	return t, nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBlobs) Upload(_ context.Context, data []byte, key, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return "https://blobs.test/profile-photos/" + key, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

type testApp struct {
	app   *fiber.App
	store *repository.Store
	auth  *MockAuthClient
	redis *miniredis.Miniredis
}

// SetupTestDB starts a single node Mongo replica set
func SetupTestDB(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint).SetDirect(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	return client, client.Database("mentorlink_e2e")
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	client, db := SetupTestDB(t)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	cfg := &config.Config{}
	cfg.Server.MaxUploadSizeMB = 5
	cfg.Server.IdempotencyTTL = time.Minute
	cfg.JWT.Secret = "test-secret-key-that-is-long-enough"
	cfg.JWT.AccessTokenExpiry = 15 * time.Minute
	cfg.JWT.RefreshTokenExpiry = time.Hour
	cfg.Cache = config.CacheConfig{EligibilityTTL: time.Minute, CategoriesTTL: time.Minute}

	store := repository.NewMongoStore(client, db).
		WithCache(repository.NewRedisCache(redisClient), cfg.Cache, zap.NewNop())
	mockAuth := NewMockAuthClient()

	app := NewApp(AppDependencies{
		Config:      cfg,
		Store:       store,
		RedisClient: redisClient,
		AuthClient:  mockAuth,
		Blobs:       &memBlobs{objects: map[string][]byte{}},
		Logger:      zap.NewNop(),
	})
	return &testApp{app: app, store: store, auth: mockAuth, redis: mr}
}

// request sends a JSON request and returns the status and decoded body
func (a *testApp) request(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(jsonBytes)
	}
	req, err := http.NewRequest(method, path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else if len(raw) > 0 && raw[0] == '[' {
		var list []interface{}
		require.NoError(t, json.Unmarshal(raw, &list))
		out["items"] = list
	}
	return resp, out
}

// login exchanges a mock Firebase token for an access token
func (a *testApp) login(t *testing.T, firebaseToken string) (string, map[string]interface{}) {
	t.Helper()
	resp, body := a.request(t, "POST", "/v1/auth/login", firebaseToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	return body["token"].(string), body["user"].(map[string]interface{})
}
