package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/collectr-app/authgate/internal/api/http/handler"
	"github.com/collectr-app/authgate/internal/api/http/middleware"
	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/service"
)

// Router wires the auth-gate handlers and middleware into one HTTP
// handler tree.
type Router struct {
	controller *service.AuthSessionController
	mfa        *service.MFAOrchestrator
	limiter    *service.RateLimiter
	prefs      *service.PreferencesService
	logger     *logger.Logger
}

// New creates a new Router instance.
func New(
	controller *service.AuthSessionController,
	mfa *service.MFAOrchestrator,
	limiter *service.RateLimiter,
	prefs *service.PreferencesService,
	logger *logger.Logger,
) *Router {
	return &Router{
		controller: controller,
		mfa:        mfa,
		limiter:    limiter,
		prefs:      prefs,
		logger:     logger,
	}
}

// Register builds the route tree. Sign-in, rate-limit and the MFA
// verification steps are reachable without a session; enrollment and
// sign-out require a bearer token for the established session.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.controller, r.logger)

	authHandler := handler.NewAuth(r.controller, r.limiter, r.logger)
	mfaHandler := handler.NewMFA(r.mfa, r.controller, r.logger)
	prefsHandler := handler.NewPreferences(r.prefs, r.logger)

	root := mux.NewRouter()
	root.Use(logging.Handle)

	api := root.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/signin", authHandler.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/ratelimit", authHandler.RateLimit).Methods(http.MethodGet)
	api.HandleFunc("/mfa/challenge", mfaHandler.Challenge).Methods(http.MethodPost)
	api.HandleFunc("/mfa/verify", mfaHandler.Verify).Methods(http.MethodPost)
	api.HandleFunc("/mfa/complete", authHandler.CompleteMFA).Methods(http.MethodPost)
	api.HandleFunc("/mfa/cancel", authHandler.CancelMFA).Methods(http.MethodPost)
	api.HandleFunc("/mfa/status", mfaHandler.Status).Methods(http.MethodGet)

	protected := root.PathPrefix("/api/auth").Subrouter()
	protected.Use(authenticate.Handle)
	protected.HandleFunc("/mfa/enroll", mfaHandler.Enroll).Methods(http.MethodPost)
	protected.HandleFunc("/signout", authHandler.SignOut).Methods(http.MethodPost)

	prefs := root.PathPrefix("/api/prefs").Subrouter()
	prefs.Use(authenticate.Handle)
	prefs.HandleFunc("", prefsHandler.Get).Methods(http.MethodGet)
	prefs.HandleFunc("", prefsHandler.Put).Methods(http.MethodPut)

	return root
}
