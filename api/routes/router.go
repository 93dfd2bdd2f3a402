package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pointbank/pointbank-backend/api/controllers"
	"github.com/pointbank/pointbank-backend/api/middleware"
	"github.com/pointbank/pointbank-backend/internal/auth"
	"github.com/pointbank/pointbank-backend/internal/classes"
	"github.com/pointbank/pointbank-backend/internal/items"
	"github.com/pointbank/pointbank-backend/internal/ledger"
	"github.com/pointbank/pointbank-backend/internal/orders"
	"github.com/pointbank/pointbank-backend/internal/points"
	"github.com/pointbank/pointbank-backend/internal/users"
	"github.com/pointbank/pointbank-backend/pkg/auth/session"
	"github.com/pointbank/pointbank-backend/pkg/config"
	"github.com/pointbank/pointbank-backend/pkg/db"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	"github.com/pointbank/pointbank-backend/pkg/logger"
	"github.com/pointbank/pointbank-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps bundles everything the router needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Sessions sessionManager

	AuthService   auth.Service
	UserService   users.Service
	LedgerService ledger.Service
	OrderService  orders.Service
	PointsService points.Service
	ItemService   items.Service
	ClassService  classes.Service

	MetricsHandler http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// A typed nil *redis.Client must not become a non-nil interface inside
	// the idempotency middleware or the readiness probe.
	var idemStore redis.IdempotencyStore
	var redisPinger redis.Pinger
	if deps.Redis != nil {
		idemStore = deps.Redis
		redisPinger = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.Idempotency(idemStore, cfg.Idempotency, logg)).
			Post("/register", controllers.AuthRegister(deps.UserService, deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(idemStore, cfg.Idempotency, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/me", controllers.CurrentUser(deps.UserService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.OrderService, logg))
			r.Get("/", controllers.ListOrders(deps.OrderService, logg))
			r.Get("/{id}", controllers.GetOrder(deps.OrderService, logg))
			r.Post("/{id}/cancel", controllers.CancelOrder(deps.OrderService, logg))
			r.Post("/{id}/deliver", controllers.DeliverOrder(deps.OrderService, logg))
		})

		r.Route("/v1/points", func(r chi.Router) {
			r.Get("/balance", controllers.GetBalance(deps.LedgerService, logg))
			r.Get("/transactions", controllers.TransactionHistory(deps.PointsService, logg))
			r.With(middleware.RequireElevated(logg)).
				Get("/transactions/all", controllers.AllTransactionHistory(deps.PointsService, logg))
			r.With(middleware.RequireElevated(logg)).
				Post("/grant", controllers.GrantPoints(deps.PointsService, logg))
		})

		r.With(middleware.RequireElevated(logg)).
			Get("/v1/students", controllers.StudentRoster(deps.PointsService, logg))

		r.Route("/v1/items", func(r chi.Router) {
			r.Get("/", controllers.ListItems(deps.ItemService, logg))
			r.Get("/{id}", controllers.GetItem(deps.ItemService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireElevated(logg))
				r.Post("/", controllers.CreateItem(deps.ItemService, logg))
				r.Patch("/{id}", controllers.UpdateItem(deps.ItemService, logg))
				r.Delete("/{id}", controllers.DeleteItem(deps.ItemService, logg))
			})
		})

		r.Route("/v1/classes", func(r chi.Router) {
			r.Use(middleware.RequireElevated(logg))
			r.Post("/", controllers.CreateClass(deps.ClassService, logg))
			r.Get("/", controllers.ListClasses(deps.ClassService, logg))
			r.Delete("/{id}", controllers.DeleteClass(deps.ClassService, logg))
			r.Post("/assign", controllers.AssignStudents(deps.ClassService, logg))
			r.Get("/{id}/ranking", controllers.ClassRanking(deps.ClassService, logg))
		})

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
			r.Post("/users", controllers.AdminCreateUser(deps.UserService, logg))
			r.Delete("/users/{id}", controllers.AdminDeleteUser(deps.UserService, logg))
		})
	})

	return r
}
