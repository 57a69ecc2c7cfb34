package handlers

import (
	"net/http"

	"github.com/username/cashflow/src/security"
	"github.com/username/cashflow/src/services"
	"github.com/username/cashflow/src/utils"
	"golang.org/x/time/rate"
)

// RouterConfig carries everything NewRouter wires into routes.
type RouterConfig struct {
	Transactions   services.TransactionService
	Views          ViewRefresher
	Projector      services.ProjectionService
	HorizonDays    int
	Auth           *security.AuthService
	AuthDisabled   bool
	Limiter        *rate.Limiter
	AllowedOrigins []string
	Events         http.HandlerFunc // websocket endpoint, optional
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// NewRouter builds the HTTP handler with global middleware applied.
func NewRouter(cfg RouterConfig) http.Handler {
	txHandler := NewTransactionHandler(cfg.Transactions)
	viewHandler := NewViewHandler(cfg.Views)
	projectionHandler := NewProjectionHandler(cfg.Projector, cfg.HorizonDays)

	requireAuth := AuthMiddleware(cfg.Auth, cfg.AuthDisabled)
	protect := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	apiRouter := http.NewServeMux()
	apiRouter.Handle("GET /api/view", protect(viewHandler.HandleGetView))
	apiRouter.Handle("GET /api/ranges", protect(HandleGetRanges))
	apiRouter.Handle("POST /api/transactions", protect(txHandler.HandleAdd))
	apiRouter.Handle("GET /api/transactions/{id}", protect(txHandler.HandleGet))
	apiRouter.Handle("PUT /api/transactions/{id}", protect(txHandler.HandleUpdate))
	apiRouter.Handle("DELETE /api/transactions/{id}", protect(txHandler.HandleDelete))
	apiRouter.Handle("POST /api/projections", protect(projectionHandler.HandleProject))
	if cfg.Events != nil {
		apiRouter.Handle("GET /api/events", protect(cfg.Events))
	}

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /health", HandleHealth)
	rootMux.Handle("/api/", apiRouter)

	var handler http.Handler = rootMux
	if cfg.Limiter != nil {
		handler = RateLimitMiddleware(cfg.Limiter)(handler)
	}
	handler = CORSMiddleware(cfg.AllowedOrigins)(handler)
	handler = LoggingMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	return RequestIDMiddleware(handler)
}
