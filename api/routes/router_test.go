package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/internal/auth"
	"github.com/pointbank/pointbank-backend/internal/classes"
	"github.com/pointbank/pointbank-backend/internal/items"
	"github.com/pointbank/pointbank-backend/internal/ledger"
	orderssvc "github.com/pointbank/pointbank-backend/internal/orders"
	"github.com/pointbank/pointbank-backend/internal/points"
	"github.com/pointbank/pointbank-backend/internal/users"
	pkgAuth "github.com/pointbank/pointbank-backend/pkg/auth"
	"github.com/pointbank/pointbank-backend/pkg/auth/session"
	"github.com/pointbank/pointbank-backend/pkg/config"
	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	"github.com/pointbank/pointbank-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubUserService struct{}

// Register implements [users.Service].
func (stubUserService) Register(ctx context.Context, input users.RegisterInput) (*models.User, error) {
	panic("unimplemented")
}

func (stubUserService) GetUser(ctx context.Context, userID uuid.UUID) (*users.UserResponse, error) {
	return &users.UserResponse{ID: userID}, nil
}

func (stubUserService) DeleteUser(ctx context.Context, input users.DeleteInput) error {
	return nil
}

type stubLedgerService struct{}

// ApplyDelta implements [ledger.Service].
func (stubLedgerService) ApplyDelta(ctx context.Context, tx *gorm.DB, input ledger.ApplyDeltaInput) (*models.PointTransaction, error) {
	panic("unimplemented")
}

// EnsureAccount implements [ledger.Service].
func (stubLedgerService) EnsureAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	panic("unimplemented")
}

// RemoveAccount implements [ledger.Service].
func (stubLedgerService) RemoveAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	panic("unimplemented")
}

// BalanceForUpdate implements [ledger.Service].
func (stubLedgerService) BalanceForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.BalanceAccount, error) {
	panic("unimplemented")
}

func (stubLedgerService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.BalanceAccount, error) {
	return &models.BalanceAccount{UserID: userID}, nil
}

func (stubLedgerService) ListTransactions(ctx context.Context, params ledger.ListParams) (*ledger.ListResult, error) {
	return &ledger.ListResult{}, nil
}

func (stubLedgerService) ListAllTransactions(ctx context.Context, params ledger.ListParams) (*ledger.ListResult, error) {
	return &ledger.ListResult{}, nil
}

type stubOrderService struct{}

// CreateOrder implements [orders.Service].
func (stubOrderService) CreateOrder(ctx context.Context, input orderssvc.CreateOrderInput) (*orderssvc.SettlementResult, error) {
	panic("unimplemented")
}

// CancelOrder implements [orders.Service].
func (stubOrderService) CancelOrder(ctx context.Context, input orderssvc.TransitionInput) (*orderssvc.SettlementResult, error) {
	panic("unimplemented")
}

// MarkDelivered implements [orders.Service].
func (stubOrderService) MarkDelivered(ctx context.Context, input orderssvc.TransitionInput) (*models.Order, error) {
	panic("unimplemented")
}

// GetOrder implements [orders.Service].
func (stubOrderService) GetOrder(ctx context.Context, input orderssvc.TransitionInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrderService) ListOrders(ctx context.Context, params orderssvc.ListParams) (*orderssvc.ListResult, error) {
	return &orderssvc.ListResult{}, nil
}

type stubPointsService struct{}

func (stubPointsService) GrantPoints(ctx context.Context, input points.GrantPointsInput) (*points.GrantResult, error) {
	return &points.GrantResult{}, nil
}

func (stubPointsService) GetHistory(ctx context.Context, params points.HistoryParams) (*ledger.ListResult, error) {
	return &ledger.ListResult{}, nil
}

func (stubPointsService) GetAllHistory(ctx context.Context, params points.HistoryParams) (*ledger.ListResult, error) {
	return &ledger.ListResult{}, nil
}

func (stubPointsService) StudentRoster(ctx context.Context, params points.RosterParams) ([]points.StudentRow, error) {
	return []points.StudentRow{}, nil
}

type stubItemService struct{}

// CreateItem implements [items.Service].
func (stubItemService) CreateItem(ctx context.Context, input items.CreateItemInput) (*models.Item, error) {
	panic("unimplemented")
}

// UpdateItem implements [items.Service].
func (stubItemService) UpdateItem(ctx context.Context, input items.UpdateItemInput) (*models.Item, error) {
	panic("unimplemented")
}

func (stubItemService) DeleteItem(ctx context.Context, actorRole enums.Role, itemID string) error {
	return nil
}

// GetItem implements [items.Service].
func (stubItemService) GetItem(ctx context.Context, actorRole enums.Role, itemID string) (*models.Item, error) {
	panic("unimplemented")
}

func (stubItemService) ListItems(ctx context.Context, actorRole enums.Role) ([]models.Item, error) {
	return []models.Item{}, nil
}

type stubClassService struct{}

// CreateClass implements [classes.Service].
func (stubClassService) CreateClass(ctx context.Context, actorRole enums.Role, name string) (*models.ClassMaster, error) {
	panic("unimplemented")
}

func (stubClassService) ListClasses(ctx context.Context, actorRole enums.Role) ([]models.ClassMaster, error) {
	return []models.ClassMaster{}, nil
}

// DeleteClass implements [classes.Service].
func (stubClassService) DeleteClass(ctx context.Context, actorRole enums.Role, classID int64) error {
	panic("unimplemented")
}

// AssignStudents implements [classes.Service].
func (stubClassService) AssignStudents(ctx context.Context, input classes.AssignInput) (int64, error) {
	panic("unimplemented")
}

func (stubClassService) Ranking(ctx context.Context, actorRole enums.Role, classID int64) ([]classes.RankedStudent, error) {
	return []classes.RankedStudent{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		Sessions:      stubSessionManager{},
		AuthService:   stubAuthService{},
		UserService:   stubUserService{},
		LedgerService: stubLedgerService{},
		OrderService:  stubOrderService{},
		PointsService: stubPointsService{},
		ItemService:   stubItemService{},
		ClassService:  stubClassService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleStudent))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready", "/api/public/ping"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	target := "/api/v1/admin/users/" + uuid.NewString()

	for _, role := range []enums.Role{enums.RoleStudent, enums.RoleTeacher} {
		req := httptest.NewRequest(http.MethodDelete, target, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, role))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for %s got %d", role, resp.Code)
		}
	}

	admin := httptest.NewRequest(http.MethodDelete, target, nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestElevatedRoutesRejectStudents(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/students"},
		{http.MethodGet, "/api/v1/points/transactions/all"},
		{http.MethodPost, "/api/v1/points/grant"},
		{http.MethodGet, "/api/v1/classes/"},
		{http.MethodPost, "/api/v1/items/"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleStudent))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for student %s %s got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestElevatedRoutesAllowTeachers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	for _, path := range []string{"/api/v1/students", "/api/v1/points/transactions/all", "/api/v1/classes/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleTeacher))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for teacher %s got %d", path, resp.Code)
		}
	}
}

func TestGrantPointsAcceptsTeacherBatch(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := fmt.Sprintf(`{"user_ids":[%q],"amount":10,"description":"quiz"}`, uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/points/grant", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleTeacher))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for teacher grant got %d body %s", resp.Code, resp.Body.String())
	}
}

func TestStudentCanReadOwnPointsAndOrders(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	for _, path := range []string{"/api/v1/points/balance", "/api/v1/points/transactions", "/api/v1/orders/", "/api/v1/items/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleStudent))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for student %s got %d body %s", path, resp.Code, resp.Body.String())
		}
	}
}
