package handler_test

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"pharmacy-connector/internal/handler"
	mid "pharmacy-connector/internal/middleware"
	"pharmacy-connector/internal/model"
	"pharmacy-connector/pkg/config"
	"pharmacy-connector/pkg/database"
	"pharmacy-connector/prometheus"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testAdminKey = "test-admin-key"

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "handler_test"}})
	os.Exit(m.Run())
}

// setupTestDB points the handlers at a fresh in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A pooled second connection would see its own empty memory database
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(
		&model.Pharmacy{},
		&model.InventoryItem{},
		&model.Sale{},
		&model.Order{},
		&model.WebhookEvent{},
	))

	database.SetDB(conn)
	return conn
}

// newTestRouter wires the same routes as cmd/main.go.
func newTestRouter() *echo.Echo {
	e := echo.New()

	pharmacyAPI := e.Group("/api/pharmacies", mid.AdminAuthMiddleware(testAdminKey))
	pharmacyAPI.GET("", handler.ListPharmacies)
	pharmacyAPI.GET("/:id", handler.GetPharmacy)
	pharmacyAPI.POST("", handler.CreatePharmacy)
	pharmacyAPI.PUT("/:id", handler.UpdatePharmacy)
	pharmacyAPI.DELETE("/:id", handler.DeletePharmacy)

	inventoryAPI := e.Group("/api/inventory", mid.APIKeyAuthMiddleware)
	inventoryAPI.GET("", handler.ListInventoryItems)
	inventoryAPI.GET("/:id", handler.GetInventoryItem)
	inventoryAPI.POST("", handler.CreateInventoryItem)
	inventoryAPI.PUT("/:id", handler.UpdateInventoryItem)
	inventoryAPI.DELETE("/:id", handler.DeleteInventoryItem)

	salesAPI := e.Group("/api/sales", mid.APIKeyAuthMiddleware)
	salesAPI.GET("", handler.ListSales)
	salesAPI.GET("/:id", handler.GetSale)
	salesAPI.POST("", handler.CreateSale)
	salesAPI.PUT("/:id", handler.UpdateSale)
	salesAPI.DELETE("/:id", handler.DeleteSale)

	ordersAPI := e.Group("/api/orders", mid.APIKeyAuthMiddleware)
	ordersAPI.GET("", handler.ListOrders)
	ordersAPI.GET("/:id", handler.GetOrder)
	ordersAPI.POST("", handler.CreateOrder)
	ordersAPI.PUT("/:id", handler.UpdateOrder)
	ordersAPI.DELETE("/:id", handler.DeleteOrder)

	webhookAPI := e.Group("/api/webhook-events", mid.APIKeyAuthMiddleware)
	webhookAPI.GET("", handler.ListWebhookEvents)
	webhookAPI.GET("/:id", handler.GetWebhookEvent)
	webhookAPI.POST("", handler.CreateWebhookEvent)
	webhookAPI.PUT("/:id", handler.UpdateWebhookEvent)
	webhookAPI.DELETE("/:id", handler.DeleteWebhookEvent)

	return e
}

// doRequest performs a request authenticated with a tenant API key.
func doRequest(e *echo.Echo, method, path, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// doAdminRequest performs a request authenticated with the admin key.
func doAdminRequest(e *echo.Echo, method, path, adminKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if adminKey != "" {
		req.Header.Set("X-ADMIN-KEY", adminKey)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// createTestPharmacy inserts a pharmacy directly into the store.
func createTestPharmacy(t *testing.T, db *gorm.DB, name, apiKey string) model.Pharmacy {
	t.Helper()
	pharmacy := model.Pharmacy{Name: name, APIKey: apiKey, IsActive: true}
	require.NoError(t, db.Create(&pharmacy).Error)
	return pharmacy
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "unexpected status, body: %s", rec.Body.String())
}

// fieldErrorsOf extracts the per-field error map from a validation response.
func fieldErrorsOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, "validation failed", resp.Error)
	return resp.Fields
}
