package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inventaire/internal/models"
	"inventaire/internal/repositories"
	"inventaire/internal/services"
	"inventaire/internal/session"
)

// newTestApp wires the full router against an in-memory database and an
// in-process Redis, exactly as main does against the real ones.
func newTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sessions := session.NewStore(rdb, time.Hour)

	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	institutionRepo := repositories.NewInstitutionRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	itemTypeRepo := repositories.NewItemTypeRepository(db)
	itemRepo := repositories.NewItemRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	orderItemRepo := repositories.NewOrderItemRepository(db)
	messageRepo := repositories.NewOrderMessageRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)

	auth := services.NewAuthService(db, userRepo, profileRepo, roleRepo)
	orders := services.NewOrderService(db, catalogRepo, itemRepo, orderRepo, orderItemRepo, messageRepo, profileRepo)
	catalogs := services.NewCatalogService(db, institutionRepo, catalogRepo, itemTypeRepo, itemRepo, orderRepo, profileRepo, membershipRepo)

	router := gin.New()
	RegisterRoutes(router, auth, orders, catalogs, sessions, "http://localhost:3000")
	return router
}

// do performs one request against the router. A non-nil body is sent as
// JSON; a non-nil cookie authenticates the call.
func do(t *testing.T, router *gin.Engine, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == SessionCookie {
			return ck
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func parseBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// signup registers an account and returns its session cookie.
func signup(t *testing.T, router *gin.Engine, email, role string) *http.Cookie {
	t.Helper()
	w := do(t, router, http.MethodPost, "/auth/signup", gin.H{
		"email":    email,
		"password": "secret123",
		"role":     role,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func TestAuthFlow(t *testing.T) {
	router := newTestApp(t)

	admin := signup(t, router, "admin@example.com", "admin")
	student := signup(t, router, "student@example.com", "user")

	// No cookie: not authorized.
	w := do(t, router, http.MethodGet, "/api/admin/institutions", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong role: forbidden.
	w = do(t, router, http.MethodGet, "/api/admin/institutions", nil, student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, router, http.MethodGet, "/api/user/orders", nil, admin)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Right role: allowed.
	w = do(t, router, http.MethodGet, "/api/admin/institutions", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	// Logout revokes the session.
	w = do(t, router, http.MethodPost, "/auth/logout", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodGet, "/api/admin/institutions", nil, admin)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupAndLoginErrors(t *testing.T) {
	router := newTestApp(t)

	w := do(t, router, http.MethodPost, "/auth/signup", gin.H{
		"email": "bad", "password": "secret123", "role": "user",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	signup(t, router, "taken@example.com", "user")
	w = do(t, router, http.MethodPost, "/auth/signup", gin.H{
		"email": "taken@example.com", "password": "secret123", "role": "user",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/auth/login", gin.H{
		"email": "taken@example.com", "password": "wrongpass",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, http.MethodPost, "/auth/login", gin.H{
		"email": "taken@example.com", "password": "secret123",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, sessionCookie(t, w))
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	router := newTestApp(t)

	admin := signup(t, router, "admin@example.com", "admin")
	student := signup(t, router, "student@example.com", "user")

	// Admin sets up an institution with a catalog and one item.
	w := do(t, router, http.MethodPost, "/api/admin/institutions", gin.H{
		"name": "ENS Lyon", "acronym": "ENSL",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	institutionID := parseBody(t, w)["id"].(string)

	w = do(t, router, http.MethodPost, "/api/admin/catalogs", gin.H{
		"institution_id": institutionID, "name": "Physics Lab", "acronym": "PHY",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	catalogID := parseBody(t, w)["id"].(string)

	w = do(t, router, http.MethodPost, "/api/admin/items", gin.H{
		"catalog_id": catalogID, "name": "Oscilloscope", "quantity": 5,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	itemID := parseBody(t, w)["id"].(string)

	// Enroll the student.
	w = do(t, router, http.MethodPost, "/api/admin/institutions/"+institutionID+"/students", gin.H{
		"email": "student@example.com",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The student sees the catalog and orders 3 of 5.
	w = do(t, router, http.MethodGet, "/api/user/catalogs", nil, student)
	require.Equal(t, http.StatusOK, w.Code)

	returnDate := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	w = do(t, router, http.MethodPost, "/api/user/orders", gin.H{
		"catalog_id":  catalogID,
		"return_date": returnDate,
		"items":       []gin.H{{"item_id": itemID, "quantity": 3}},
	}, student)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := parseBody(t, w)["order_id"].(string)

	// A second order blows the remaining stock.
	w = do(t, router, http.MethodPost, "/api/user/orders", gin.H{
		"catalog_id":  catalogID,
		"return_date": returnDate,
		"items":       []gin.H{{"item_id": itemID, "quantity": 3}},
	}, student)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Student returns, admin validates, stock comes back.
	w = do(t, router, http.MethodPost, "/api/user/orders/"+orderID+"/finalize", nil, student)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/admin/orders/validate", gin.H{
		"order_ids": []string{orderID},
	}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := parseBody(t, w)
	assert.EqualValues(t, 1, result["validated"])
	assert.EqualValues(t, 0, result["failed"])

	w = do(t, router, http.MethodGet, "/api/admin/items/stat?item="+itemID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	stats := parseBody(t, w)
	assert.EqualValues(t, 5, stats["actual_quantity"])
	assert.EqualValues(t, 0, stats["reserved"])
}

func TestOrderMessagesOverHTTP(t *testing.T) {
	router := newTestApp(t)

	admin := signup(t, router, "admin@example.com", "admin")
	student := signup(t, router, "student@example.com", "user")

	w := do(t, router, http.MethodPost, "/api/admin/institutions", gin.H{"name": "ENS Lyon"}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	institutionID := parseBody(t, w)["id"].(string)
	w = do(t, router, http.MethodPost, "/api/admin/catalogs", gin.H{
		"institution_id": institutionID, "name": "Physics Lab",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	catalogID := parseBody(t, w)["id"].(string)
	w = do(t, router, http.MethodPost, "/api/admin/items", gin.H{
		"catalog_id": catalogID, "name": "Multimeter", "quantity": 2,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	itemID := parseBody(t, w)["id"].(string)

	returnDate := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	w = do(t, router, http.MethodPost, "/api/user/orders", gin.H{
		"catalog_id":  catalogID,
		"return_date": returnDate,
		"items":       []gin.H{{"item_id": itemID, "quantity": 1}},
	}, student)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := parseBody(t, w)["order_id"].(string)

	w = do(t, router, http.MethodPost, "/api/admin/orders/"+orderID+"/messages", gin.H{
		"message": "missing probe on return",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Over the cap: rejected.
	long := make([]byte, 81)
	for i := range long {
		long[i] = 'x'
	}
	w = do(t, router, http.MethodPost, "/api/admin/orders/"+orderID+"/messages", gin.H{
		"message": string(long),
	}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/admin/orders/"+orderID+"/messages", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "missing probe on return", messages[0]["message"])
}
