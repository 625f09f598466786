// Package httptransport is the HTTP edge of the festival service. Handlers
// decode and validate requests, call one feature service and translate the
// coded error into a status; no business rules live here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	adminservice "sportsfest/internal/admin/service"
	"sportsfest/internal/platform/metrics"
	"sportsfest/internal/platform/middleware"
	"sportsfest/pkg/platform/httputil"
)

const defaultRequestTimeout = 30 * time.Second

// Gates bundles the route guards the feature handlers mount. Auth admits
// holders of a valid bearer token; Admin admits the static operator token.
type Gates struct {
	Auth  func(http.Handler) http.Handler
	Admin func(http.Handler) http.Handler
}

// Pinger reports backing-store reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps collects everything the router mounts. Logger and Metrics may be
// nil; DB may be nil when the service runs on memory stores.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	DB      Pinger

	RequestTimeout time.Duration
	AdminToken     string
	JWTValidator   middleware.JWTValidator

	Auth          AuthService
	Students      StudentService
	Sports        SportService
	Registrations RegistrationService
	Payments      PaymentService
	Sponsorships  SponsorshipService
	Admin         AdminService
}

// AdminService exposes the operator dashboard aggregate.
type AdminService interface {
	Overview(ctx context.Context) (*adminservice.Overview, error)
}

// NewRouter assembles the full route table with the shared middleware
// chain. Health and metrics endpoints sit outside the chain so probes stay
// cheap and unlogged.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	gates := Gates{
		Auth:  middleware.RequireAuth(deps.JWTValidator, logger),
		Admin: middleware.RequireAdminToken(deps.AdminToken, logger),
	}

	root := chi.NewRouter()
	root.Get("/healthz", handleHealth(deps.DB))
	root.Method(http.MethodGet, "/metrics", metrics.Handler())

	api := chi.NewRouter()
	api.Use(middleware.Recovery(logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.RequestTime)
	api.Use(middleware.ClientMetadata)
	api.Use(middleware.Device)
	api.Use(middleware.Logger(logger))
	api.Use(middleware.Timeout(timeout))
	api.Use(middleware.ContentTypeJSON)
	api.Use(middleware.Latency(deps.Metrics))

	newAuthHandler(deps.Auth, logger).register(api)
	newStudentHandler(deps.Students, logger).register(api, gates)
	newSportHandler(deps.Sports, logger).register(api, gates)
	newRegistrationHandler(deps.Registrations, logger).register(api, gates)
	newPaymentHandler(deps.Payments, logger).register(api, gates)
	newSponsorshipHandler(deps.Sponsorships, logger).register(api, gates)
	newAdminHandler(deps.Admin, logger).register(api, gates)

	root.Mount("/", api)
	return root
}

// handleHealth pings the database with a short deadline. With no database
// configured it reports plain liveness.
func handleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
