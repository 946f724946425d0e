package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tntan04/quan-ly-mua-sam/internal/config"
	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/infra"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository/memory"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	password   = "secret1"
	deptCardio = "Khoa Nội tim mạch"
)

func init() { gin.SetMode(gin.TestMode) }

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
	unit   model.ProcurementUnit
	method model.ProcurementMethod
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	cfg := &config.Config{
		Env:                 "test",
		JWTSecret:           "router-secret",
		JWTExpirationHours:  1,
		JWTRefreshHours:     24,
		DefaultUserPassword: "123456",
	}

	srv := &testServer{store: store}
	srv.unit = model.ProcurementUnit{Name: "Phòng Vật tư - Thiết bị Y tế"}
	require.NoError(t, store.Registry().CreateUnit(ctx, &srv.unit))
	srv.method = model.ProcurementMethod{Name: "Mua sắm gói thầu dưới 10 triệu đồng"}
	require.NoError(t, store.Registry().CreateMethod(ctx, &srv.method))

	srv.addUser(t, "admin@bv.vn", model.RoleAdmin, "Phòng Công nghệ Thông tin", nil)
	srv.addUser(t, "muasam@bv.vn", model.RoleProcurement, "Phòng Vật tư - Thiết bị Y tế", &srv.unit.ID)
	srv.addUser(t, "tim@bv.vn", model.RoleUsage, deptCardio, nil)

	inventory := service.NewInventoryService(store.Goods(), store.Inventory(), store.Dossiers())
	srv.engine = New(cfg, Services{
		Auth:      service.NewAuthService(store.Users(), store.Registry(), cfg, nil),
		Registry:  service.NewRegistryService(store.Registry(), store.Users(), store.Requests(), nil),
		Requests:  service.NewRequestService(store.Requests(), store.Users(), store.Registry()),
		Dossiers:  service.NewDossierService(store.Dossiers(), store.Requests(), store.Registry(), nil, nil, nil),
		Inventory: inventory,
		Reports: service.NewReportService(store.Requests(), store.Dossiers(), store.Registry(),
			store.Inventory(), inventory, infra.NewPDFRenderer("")),
	}, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return srv
}

func (s *testServer) addUser(t *testing.T, email, role, dept string, unit *uuid.UUID) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Name: email, Email: email, PasswordHash: string(hash), Role: role, Department: dept, UnitID: unit}
	require.NoError(t, s.store.Users().Create(context.Background(), u))
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) newRequestBody() dto.CreateRequestRequest {
	return dto.CreateRequestRequest{
		Title:        "Máy đo SpO2",
		TargetUnitID: s.unit.ID.String(),
		Items:        []dto.RequestItem{{Name: "Máy đo SpO2 cầm tay", QuantityUnit: "3 cái"}},
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Login(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "TIM@bv.vn", Password: password})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.LoginResponse](t, w)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotContains(t, w.Body.String(), "password_hash")

	w = s.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "tim@bv.vn", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "not-an-email", Password: password})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, map[string]any{"email": "email"}, body["fields"])

	w = s.do(t, http.MethodPost, "/v1/auth/login", "", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RefreshTokenIsNotAnAccessToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "tim@bv.vn", Password: password})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.LoginResponse](t, w)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/auth/me", resp.RefreshToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/auth/me", resp.AccessToken, nil).Code)

	w = s.do(t, http.MethodPost, "/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/requests", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/requests", "garbage", nil).Code)
}

func TestRouter_UsersAreAdminOnly(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/users", s.login(t, "tim@bv.vn"), nil).Code)

	w := s.do(t, http.MethodGet, "/v1/users", s.login(t, "admin@bv.vn"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.UserResponse](t, w), 3)
}

func TestRouter_RequestLifecycle(t *testing.T) {
	s := newTestServer(t)
	usage := s.login(t, "tim@bv.vn")
	procurement := s.login(t, "muasam@bv.vn")

	w := s.do(t, http.MethodPost, "/v1/requests", usage, s.newRequestBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.RequestResponse](t, w)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, deptCardio, created.Department)

	// Only procurement staff decide.
	path := "/v1/requests/" + created.ID + "/accept"
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, path, usage, nil).Code)

	w = s.do(t, http.MethodPost, path, procurement, dto.DecisionRequest{Note: "Đã tiếp nhận"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.StatusReceived, decode[dto.RequestResponse](t, w).Status)

	// Accepting twice is an invalid transition.
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, path, procurement, nil).Code)

	w = s.do(t, http.MethodGet, "/v1/requests/eligible", procurement, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.RequestResponse](t, w), 1)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/requests/"+uuid.NewString(), usage, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/requests/not-a-uuid", usage, nil).Code)
}

func TestRouter_RequestCollectionReplace(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@bv.vn")

	entry := dto.BulkRequestEntry{CreateRequestRequest: s.newRequestBody()}
	w := s.do(t, http.MethodPost, "/v1/requests", admin, []dto.BulkRequestEntry{entry, entry})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]dto.RequestResponse](t, w), 2)

	// Array form is not open to department users.
	w = s.do(t, http.MethodPost, "/v1/requests", s.login(t, "tim@bv.vn"), []dto.BulkRequestEntry{entry})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/requests", admin, `[{"target_unit_id":"x"}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_DossierFlow(t *testing.T) {
	s := newTestServer(t)
	usage := s.login(t, "tim@bv.vn")
	procurement := s.login(t, "muasam@bv.vn")

	w := s.do(t, http.MethodPost, "/v1/requests", usage, s.newRequestBody())
	require.Equal(t, http.StatusCreated, w.Code)
	reqID := decode[dto.RequestResponse](t, w).ID
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/requests/"+reqID+"/accept", procurement, nil).Code)

	w = s.do(t, http.MethodPost, "/v1/dossiers", procurement, dto.CreateDossierRequest{
		Name:              "Gói thầu máy đo",
		ProcurementMethod: s.method.Name,
		RequestIDs:        []string{reqID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dossier := decode[dto.DossierResponse](t, w)

	w = s.do(t, http.MethodGet, "/v1/dossiers", usage, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.SourcePrimary, w.Header().Get("X-Data-Source"))
	assert.Len(t, decode[[]dto.DossierResponse](t, w), 1)

	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.3 biên bản"))
	w = s.do(t, http.MethodPut, "/v1/dossiers/"+dossier.ID+"/documents", procurement, dto.UpdateDocumentsRequest{
		Files:                []dto.DossierFileInput{{Content: "Biên bản nghiệm thu", FileName: "biên bản.pdf", FileBase64: &payload}},
		PermittedDepartments: []string{deptCardio},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.DossierResponse](t, w)
	require.Len(t, updated.Files, 1)

	w = s.do(t, http.MethodGet, "/v1/dossiers/"+dossier.ID+"/files/"+updated.Files[0].ID, usage, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "filename*=UTF-8''bi%C3%AAn%20b%E1%BA%A3n.pdf")
	assert.Equal(t, "%PDF-1.3 biên bản", w.Body.String())

	w = s.do(t, http.MethodPost, "/v1/dossiers/"+dossier.ID+"/complete", procurement, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.DossierCompleted, decode[dto.DossierResponse](t, w).Status)

	w = s.do(t, http.MethodGet, "/v1/requests/"+reqID, usage, nil)
	assert.Equal(t, model.StatusPurchased, decode[dto.RequestResponse](t, w).Status)
}

func TestRouter_DossierExport(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/reports/dossiers/export?year=2024", s.login(t, "admin@bv.vn"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bao-cao-ho-so-2024.xlsx")
	assert.Empty(t, w.Header().Get("Content-Encoding"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	title, err := f.GetCellValue("Hồ sơ", "A1")
	require.NoError(t, err)
	assert.Equal(t, "BÁO CÁO HỒ SƠ MUA SẮM", title)
}

func TestRouter_ReportsAreCompressed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+s.login(t, "admin@bv.vn"))
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestRouter_GoodsAlias(t *testing.T) {
	s := newTestServer(t)
	procurement := s.login(t, "muasam@bv.vn")

	w := s.do(t, http.MethodPost, "/v1/goods", procurement, map[string]any{"name": "Găng tay y tế", "unit": "hộp"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/v1/products", procurement, nil)
	require.Equal(t, http.StatusOK, w.Code)
	goods := decode[[]dto.GoodsResponse](t, w)
	require.Len(t, goods, 1)
	assert.Equal(t, "Găng tay y tế", goods[0].Name)
}

func TestRouter_UnknownRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "tim@bv.vn")

	w := s.do(t, http.MethodGet, "/v1/nothing-here", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	assert.Equal(t, http.StatusMethodNotAllowed, s.do(t, http.MethodPatch, "/health", "", nil).Code)
}
