package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"billminder/internal/handlers"
	"billminder/internal/logger"
	"billminder/internal/middleware"
	"billminder/internal/models"
	"billminder/internal/notify"
	"billminder/internal/report"
	"billminder/internal/scheduler"
	"billminder/internal/services"
	"billminder/internal/storage"
	"billminder/internal/validator"
)

const (
	testPassword = "Senha@123"
	testSweepKey = "sweep-test-key"
	maxUpload    = 1 << 20
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Mailer *recordingMailer
}

// recordingMailer keeps every message instead of delivering it.
type recordingMailer struct {
	mu   sync.Mutex
	sent []*notify.Message
}

func (m *recordingMailer) Send(_ context.Context, msg *notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordingMailer) last() *notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Category{},
		&models.Bill{},
		&models.Notification{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite database, a temporary attachment directory and a recording mailer.
// Dates are interpreted in UTC.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	loc := time.UTC
	mailer := &recordingMailer{}

	// Services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	categoryService := services.NewCategoryService(db)
	billService := services.NewBillService(db, store, loc, maxUpload)
	notificationService := services.NewNotificationService(db)
	generator := report.NewGenerator(store, loc, logger.Named("report"))
	reportService := services.NewReportService(billService, categoryService, generator, loc)

	dispatcher := notify.NewDispatcher(mailer, store, notificationService, notify.NewComposer(loc), logger.Named("dispatch"))
	sweeps := scheduler.NewSerialRunner(notify.NewSweeper(billService, notificationService, dispatcher, loc, logger.Named("sweep")))

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	userHandler := handlers.NewUserHandler(userService, notificationService, auditService, sweeps)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	billHandler := handlers.NewBillHandler(billService, auditService, loc, maxUpload)
	reportHandler := handlers.NewReportHandler(reportService, auditService, loc, handlers.DefaultReportTimeout)
	sweepHandler := handlers.NewSweepHandler(sweeps)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	sweepRoutes := v1.Group("/sweeps")
	sweepRoutes.Use(middleware.SweepKeyMiddleware(testSweepKey))
	sweepRoutes.POST("/regular", sweepHandler.RunRegular)
	sweepRoutes.POST("/urgent", sweepHandler.RunUrgent)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/user/notification-settings", userHandler.UpdateNotificationSettings)
	protected.GET("/user/notifications", userHandler.ListNotifications)
	protected.POST("/notifications/test", userHandler.TestNotifications)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	bills := protected.Group("/bills")
	bills.POST("", billHandler.CreateBill)
	bills.GET("", billHandler.ListBills)
	bills.GET("/:id", billHandler.GetBill)
	bills.PUT("/:id", billHandler.UpdateBill)
	bills.DELETE("/:id", billHandler.DeleteBill)
	bills.PATCH("/:id/status", billHandler.UpdateStatus)
	bills.PATCH("/:id/payment-info", billHandler.UpdatePaymentInfo)
	bills.POST("/:id/invoice", billHandler.UploadInvoice)
	bills.POST("/:id/proof", billHandler.UploadProof)
	bills.GET("/:id/files/:kind", billHandler.DownloadFile)

	protected.GET("/reports/monthly/:year/:month/:format", reportHandler.MonthlyReport)

	return &testApp{DB: db, Router: router, Mailer: mailer}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// sweep triggers a reminder sweep through the API key protected route.
func (app *testApp) sweep(kind string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sweeps/"+kind, nil)
	req.Header.Set("X-API-Key", testSweepKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// upload posts a multipart file to path.
func (app *testApp) upload(t *testing.T, path, filename string, data []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts error.code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Test User","email":%q,"password":%q}`, email, testPassword)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

// createBill creates a single bill and returns its ID.
func (app *testApp) createBill(t *testing.T, token, name, amount string, due time.Time) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"amount":%q,"due_date":%q}`, name, amount, due.Format("2006-01-02"))
	rec := app.request("POST", "/api/v1/bills", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bill failed: %d %s", rec.Code, rec.Body.String())
	}
	bill := parseJSON(t, rec)["bill"].(map[string]interface{})
	return bill["id"].(string)
}

// today returns the current UTC date at midnight.
func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
