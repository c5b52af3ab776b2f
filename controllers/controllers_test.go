package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/pos-sync/cache"
	"github.com/yeremiapane/pos-sync/controllers"
	"github.com/yeremiapane/pos-sync/database"
	"github.com/yeremiapane/pos-sync/gateway"
	"github.com/yeremiapane/pos-sync/middlewares"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/services"
	"github.com/yeremiapane/pos-sync/state"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

type testEnv struct {
	db     *gorm.DB
	engine *syncengine.Engine
	net    *services.ConnectivityMonitor
	router *gin.Engine
}

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	db.Create(&models.User{ID: "owner-1", Name: "Owner", Email: "owner@example.com", Password: string(hashed)})
	db.Create(&models.User{ID: "cashier-1", Name: "Cashier", Email: "cashier@example.com", Password: string(hashed)})
	db.Create(&models.StaffMember{UserID: "cashier-1", OwnerID: "owner-1", Role: models.RoleCashier, Active: true})
	db.Create(&models.CategoryRecord{ID: 1, OwnerID: "owner-1", Name: "Drinks", Color: "cup"})
	cat := uint(1)
	db.Create(&models.MenuItemRecord{ID: 5, OwnerID: "owner-1", CategoryID: &cat, Name: "Tea", Price: 20, Stock: 10})
	return db
}

// asUser stands in for the auth middleware. X-User overrides the default
// user for a single request.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if override := c.GetHeader("X-User"); override != "" {
			c.Set("userID", override)
		} else {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

func setupTestEnv(t *testing.T, userID string) *testEnv {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	monitor := services.NewConnectivityMonitor(gateway.NewGormGateway(db), 0)
	monitor.SetOnline(true)
	engine := syncengine.New(
		gateway.NewGormGateway(db),
		cache.NewStore(cache.NewMemoryBackend()),
		state.NewStore(),
		monitor,
		syncengine.DefaultConfig(),
	)
	t.Cleanup(engine.Stop)

	userCtrl := controllers.NewUserController(db)
	sessionCtrl := controllers.NewSessionController(engine)
	syncCtrl := controllers.NewSyncController(engine)
	categoryCtrl := controllers.NewMenuCategoryController(engine)
	menuCtrl := controllers.NewMenuController(engine)
	orderCtrl := controllers.NewOrderController(engine)
	cartCtrl := controllers.NewCartController(engine)
	brandCtrl := controllers.NewBrandController(engine)

	router := gin.New()
	router.POST("/login", userCtrl.Login)
	auth := router.Group("/", asUser(userID))
	auth.POST("/session", sessionCtrl.Start)
	auth = auth.Group("/", middlewares.SessionOwner(engine.SessionUser))
	auth.DELETE("/session", sessionCtrl.End)
	auth.GET("/sync/status", syncCtrl.GetStatus)
	auth.POST("/sync/refresh", syncCtrl.Refresh)
	auth.GET("/state", syncCtrl.GetState)
	auth.GET("/categories", categoryCtrl.GetAllCategories)
	auth.POST("/categories", categoryCtrl.CreateCategory)
	auth.DELETE("/categories/:cat_id", categoryCtrl.DeleteCategory)
	auth.GET("/menu-items", menuCtrl.GetAllMenus)
	auth.POST("/menu-items", menuCtrl.CreateMenu)
	auth.PATCH("/menu-items/:menu_id", menuCtrl.UpdateMenu)
	auth.DELETE("/menu-items/:menu_id", menuCtrl.DeleteMenu)
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.POST("/orders", orderCtrl.CreateOrder)
	auth.GET("/cart", cartCtrl.GetCart)
	auth.PUT("/cart", cartCtrl.UpdateCart)
	auth.GET("/brand", brandCtrl.GetBrand)
	auth.PUT("/brand", brandCtrl.UpdateBrand)

	return &testEnv{db: db, engine: engine, net: monitor, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	return e.doAs(t, "", method, path, body)
}

func (e *testEnv) doAs(t *testing.T, userID, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User", userID)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (e *testEnv) startSession(t *testing.T) {
	t.Helper()
	w, _ := e.do(t, http.MethodPost, "/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	e.engine.Wait()
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	w, resp := env.do(t, http.MethodPost, "/login", gin.H{"email": "cashier@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "cashier-1", data["user_id"])
	assert.Equal(t, models.RoleCashier, data["user_role"])

	claims, err := utils.ParseToken(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "cashier-1", claims.UserID)

	w, _ = env.do(t, http.MethodPost, "/login", gin.H{"email": "cashier@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodPost, "/login", gin.H{"email": "nobody@example.com", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionStartHydratesStaffTenant(t *testing.T) {
	env := setupTestEnv(t, "cashier-1")
	env.startSession(t)

	assert.Equal(t, "owner-1", env.engine.TenantID())

	w, resp := env.do(t, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	st := data["state"].(map[string]interface{})
	items := st["menuItems"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "5", item["id"])
	assert.Equal(t, "Drinks", item["category"])

	status := data["status"].(map[string]interface{})
	assert.Equal(t, true, status["isSynced"])
	assert.Equal(t, true, status["isOnline"])
}

func TestOperationsWithoutSession(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	w, _ := env.do(t, http.MethodPost, "/categories", gin.H{"name": "Snacks"})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	env := setupTestEnv(t, "owner-1")
	env.startSession(t)

	w, resp := env.do(t, http.MethodPost, "/categories", gin.H{"name": "Snacks", "icon": "cookie"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := resp["data"].(map[string]interface{})
	id := created["id"].(string)
	assert.NotContains(t, id, "temp-")

	w, _ = env.do(t, http.MethodPost, "/categories", gin.H{"name": "snacks"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = env.do(t, http.MethodPost, "/categories", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/categories/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	env.db.Model(&models.CategoryRecord{}).Where("owner_id = ?", "owner-1").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestMenuItemEndpoints(t *testing.T) {
	env := setupTestEnv(t, "owner-1")
	env.startSession(t)

	w, resp := env.do(t, http.MethodPost, "/menu-items", gin.H{"name": "Coffee", "price": 30, "categoryId": "1", "stock": 4})
	require.Equal(t, http.StatusCreated, w.Code)
	created := resp["data"].(map[string]interface{})
	assert.Equal(t, "Drinks", created["category"])

	w, _ = env.do(t, http.MethodPatch, "/menu-items/5", gin.H{"stock": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.do(t, http.MethodPatch, "/menu-items/5", gin.H{"stock": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp["data"].(map[string]interface{})["stock"])

	var rec models.MenuItemRecord
	require.NoError(t, env.db.First(&rec, 5).Error)
	assert.Equal(t, 0, rec.Stock)

	w, _ = env.do(t, http.MethodDelete, "/menu-items/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/menu-items/5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Error(t, env.db.First(&models.MenuItemRecord{}, 5).Error)
}

func TestOfflineUpdateStillSucceeds(t *testing.T) {
	env := setupTestEnv(t, "owner-1")
	env.startSession(t)
	env.net.SetOnline(false)

	w, _ := env.do(t, http.MethodPatch, "/menu-items/5", gin.H{"stock": 2})
	require.Equal(t, http.StatusOK, w.Code)

	var rec models.MenuItemRecord
	require.NoError(t, env.db.First(&rec, 5).Error)
	assert.Equal(t, 10, rec.Stock)

	w, _ = env.do(t, http.MethodPost, "/sync/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateOrderComputesTotals(t *testing.T) {
	env := setupTestEnv(t, "owner-1")
	env.startSession(t)

	brand := models.DefaultBrandSettings()
	brand.GSTEnabled = true
	w, _ := env.do(t, http.MethodPut, "/brand", brand)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPut, "/cart", gin.H{
		"lines": []gin.H{{"item": gin.H{"id": "5", "name": "Tea", "price": 20}, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodPost, "/orders", gin.H{
		"items":         []gin.H{{"id": "5", "name": "Tea", "price": 20, "quantity": 5}},
		"discount":      10,
		"discountType":  models.DiscountPercentage,
		"paymentMethod": "upi",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	order := resp["data"].(map[string]interface{})
	assert.Equal(t, 100.0, order["subtotal"])
	assert.Equal(t, 10.0, order["discount"])
	assert.Equal(t, 2.25, order["cgst"])
	assert.Equal(t, 2.25, order["sgst"])
	assert.Equal(t, 94.5, order["total"])

	var saved models.OrderRecord
	require.NoError(t, env.db.Where("owner_id = ?", "owner-1").First(&saved).Error)
	assert.Equal(t, 94.5, saved.Total)
	assert.Len(t, saved.Lines(), 1)

	_, resp = env.do(t, http.MethodGet, "/cart", nil)
	cart := resp["data"].(map[string]interface{})
	assert.Empty(t, cart["lines"])
}

func TestCartTotals(t *testing.T) {
	env := setupTestEnv(t, "owner-1")
	env.startSession(t)

	w, resp := env.do(t, http.MethodPut, "/cart", gin.H{
		"lines": []gin.H{{"item": gin.H{"id": "5", "name": "Tea", "price": 20}, "quantity": 3}},
		"draft": gin.H{"discount": 5, "discountType": models.DiscountFixed, "orderType": models.OrderTypeTakeaway},
	})
	require.Equal(t, http.StatusOK, w.Code)
	totals := resp["data"].(map[string]interface{})["totals"].(map[string]interface{})
	assert.Equal(t, 60.0, totals["subtotal"])
	assert.Equal(t, 55.0, totals["total"])
}

func TestBrandRejectedRemotelyKeepsLocalCopy(t *testing.T) {
	env := setupTestEnv(t, "owner-1")
	env.startSession(t)
	require.NoError(t, env.db.Migrator().DropTable(&models.BrandSettingsRecord{}))

	brand := models.DefaultBrandSettings()
	brand.Name = "Chai Point"
	w, resp := env.do(t, http.MethodPut, "/brand", brand)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Chai Point", resp["data"].(map[string]interface{})["name"])
	assert.Equal(t, "Chai Point", env.engine.Store().Brand().Name)
}

func TestSyncStatusAndLogout(t *testing.T) {
	env := setupTestEnv(t, "owner-1")
	env.startSession(t)

	w, resp := env.do(t, http.MethodGet, "/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(syncengine.StateSynced), resp["data"].(map[string]interface{})["state"])

	w, _ = env.do(t, http.MethodPost, "/sync/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.engine.TenantID())
	assert.Empty(t, env.engine.Store().MenuItems())

	require.ErrorIs(t, env.engine.Refresh(context.Background(), true), syncengine.ErrNoTenant)
}

func TestOtherUserCannotUseRunningSession(t *testing.T) {
	env := setupTestEnv(t, "owner-1")
	env.startSession(t)

	w, _ := env.doAs(t, "cashier-1", http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.doAs(t, "cashier-1", http.MethodPost, "/menu-items", gin.H{"name": "Coffee", "price": 30})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Len(t, env.engine.Store().MenuItems(), 1)

	w, _ = env.doAs(t, "cashier-1", http.MethodDelete, "/session", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "owner-1", env.engine.TenantID())

	// taking over the terminal is allowed and rescopes it
	w, _ = env.doAs(t, "cashier-1", http.MethodPost, "/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env.engine.Wait()
	w, _ = env.do(t, http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = env.doAs(t, "cashier-1", http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
