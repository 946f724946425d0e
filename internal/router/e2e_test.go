//go:build integration

package router

// End-to-end tests against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v
// An optional .env.test overrides container images.

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/config"
	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/handler"
	"github.com/tntan04/quan-ly-mua-sam/internal/infra"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/worker"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func doHTTP(t *testing.T, srv *httptest.Server, method, path string, body any, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, jsonBody(t, body))
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func image(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	rdb    *redis.Client
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	_ = godotenv.Load(".env.test")
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage(image("TEST_POSTGRES_IMAGE", "postgres:15-alpine")),
		tcPostgres.WithDatabase("muasam_test"),
		tcPostgres.WithUsername("muasam"),
		tcPostgres.WithPassword("muasam"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage(image("TEST_REDIS_IMAGE", "redis:7-alpine")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                  "test",
		JWTSecret:            "test-secret-key",
		JWTExpirationHours:   8,
		JWTRefreshHours:      24,
		DefaultUserPassword:  "123456",
		DatabaseURL:          pgURL,
		RedisURL:             rdURL,
		MigrationsPath:       "../../migrations",
		PrimaryStoreTimeout:  2 * time.Second,
		SnapshotPollInterval: time.Minute,
	}

	require.NoError(t, infra.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath))
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO users (name, email, password_hash, role, department)
		VALUES ('Admin E2E', 'admin@e2e.test', ?, 'ADMIN', 'Phòng Công nghệ Thông tin')`, string(hash)).Error)
	require.NoError(t, db.Exec(`INSERT INTO procurement_methods (name, position) VALUES (?, 1)`,
		"Mua sắm gói thầu dưới 10 triệu đồng").Error)

	dbCB := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "postgres"})
	svc, snapshots := NewServices(cfg, Deps{DB: db, RDB: rdb, DBBreaker: dbCB, Dispatcher: worker.NewDispatcher(rdb)})
	require.NoError(t, snapshots.RefreshSnapshots(ctx))

	srv := httptest.NewServer(New(cfg, svc, handler.Health(db, rdb, dbCB)))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, rdb: rdb, token: login(t, srv, "admin@e2e.test", "admin123")}
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	resp := doHTTP(t, srv, http.MethodPost, "/v1/auth/login", dto.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body dto.LoginResponse
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

// ── Tests ────────────────────────────────────────────────────────────────────

// Request → accept → dossier → complete → stock import.
func TestE2E_ProcurementCycle(t *testing.T) {
	env := setupTestEnv(t)
	srv := env.server

	resp := doHTTP(t, srv, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doHTTP(t, srv, http.MethodPost, "/v1/units", dto.CreateUnitRequest{Name: "Phòng Vật tư - Thiết bị Y tế"}, env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var unit dto.UnitResponse
	decodeJSON(t, resp, &unit)

	resp = doHTTP(t, srv, http.MethodPost, "/v1/users", []dto.CreateUserRequest{
		{Name: "Mua sắm", Email: "muasam@e2e.test", Role: model.RoleProcurement, Department: "Phòng Vật tư - Thiết bị Y tế", UnitID: &unit.ID},
		{Name: "Bác sĩ Tim", Email: "tim@e2e.test", Role: model.RoleUsage, Department: "Khoa Nội tim mạch"},
	}, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	usage := login(t, srv, "tim@e2e.test", "123456")
	procurement := login(t, srv, "muasam@e2e.test", "123456")

	resp = doHTTP(t, srv, http.MethodPost, "/v1/requests", dto.CreateRequestRequest{
		Title:        "Máy đo huyết áp",
		TargetUnitID: unit.ID,
		Items:        []dto.RequestItem{{Name: "Máy đo huyết áp điện tử", QuantityUnit: "2 cái"}},
	}, usage)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var req dto.RequestResponse
	decodeJSON(t, resp, &req)

	resp = doHTTP(t, srv, http.MethodPost, "/v1/requests/"+req.ID+"/accept", nil, procurement)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doHTTP(t, srv, http.MethodPut, "/v1/requests/"+req.ID+"/amount", map[string]any{"amount": "1500000"}, procurement)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doHTTP(t, srv, http.MethodPost, "/v1/dossiers", dto.CreateDossierRequest{
		Name:              "Gói thầu máy đo huyết áp",
		ProcurementMethod: "Mua sắm gói thầu dưới 10 triệu đồng",
		RequestIDs:        []string{req.ID},
	}, procurement)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var dossier dto.DossierResponse
	decodeJSON(t, resp, &dossier)
	assert.Equal(t, "1500000", dossier.TotalValue.String())

	resp = doHTTP(t, srv, http.MethodPost, "/v1/dossiers/"+dossier.ID+"/complete", nil, procurement)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doHTTP(t, srv, http.MethodGet, "/v1/requests/"+req.ID, nil, usage)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &req)
	assert.Equal(t, model.StatusPurchased, req.Status)

	resp = doHTTP(t, srv, http.MethodPost, "/v1/inventory/imports", map[string]any{
		"dossier_id": dossier.ID,
		"items": []map[string]any{
			{"name": "Máy đo huyết áp điện tử", "unit": "cái", "price": "750000", "quantity": 2, "supplier": "Omron"},
		},
	}, procurement)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doHTTP(t, srv, http.MethodGet, "/v1/inventory/stock", nil, procurement)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stock []dto.StockResponse
	decodeJSON(t, resp, &stock)
	require.Len(t, stock, 1)
	assert.Equal(t, 2, stock[0].Closing)
}

// Password reset goes through the Redis e-mail queue.
func TestE2E_ForgotPasswordEnqueuesEmail(t *testing.T) {
	env := setupTestEnv(t)

	resp := doHTTP(t, env.server, http.MethodPost, "/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "admin@e2e.test"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	n, err := env.rdb.LLen(context.Background(), worker.QueueEmail).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
