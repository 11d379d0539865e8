package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"eduscore/internal/api/handler"
	"eduscore/internal/api/middleware"
	"eduscore/internal/app/service"
	"eduscore/internal/common"
	"eduscore/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Version = "1.0.0"

func NewRouter(
	cfg *config.Config,
	services *service.Services,
	auth *middleware.Auth,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(middleware.Recoverer(!cfg.IsProduction()))
	r.Use(middleware.NewMetrics(registry).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin(cfg.AllowedOrigins, cfg.AllowedOriginSuffixes),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/health", health)
	r.Get("/", welcome)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, "Không tìm thấy đường dẫn: "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusMethodNotAllowed, "Phương thức "+r.Method+" không được hỗ trợ cho đường dẫn: "+r.URL.Path)
	})

	r.Route("/api", func(api chi.Router) {
		authHandler := handler.NewAuthHandler(services.Auth)
		api.Route("/auth", func(r chi.Router) { authHandler.RegisterRoutes(r, auth) })

		userHandler := handler.NewUserHandler(services.Users)
		api.Route("/users", func(r chi.Router) { userHandler.RegisterRoutes(r, auth) })

		subjectHandler := handler.NewSubjectHandler(services.Subjects)
		api.Route("/subjects", func(r chi.Router) { subjectHandler.RegisterRoutes(r, auth) })

		examHandler := handler.NewExamHandler(services.Exams)
		api.Route("/exams", func(r chi.Router) { examHandler.RegisterRoutes(r, auth) })

		scoreHandler := handler.NewScoreHandler(services.Scores)
		api.Route("/scores", func(r chi.Router) { scoreHandler.RegisterRoutes(r, auth) })

		classHandler := handler.NewClassHandler(services.Classes)
		api.Route("/classes", func(r chi.Router) { classHandler.RegisterRoutes(r, auth) })

		notificationHandler := handler.NewNotificationHandler(services.Notifications)
		api.Route("/notifications", func(r chi.Router) { notificationHandler.RegisterRoutes(r, auth) })
	})

	return r
}

// allowOrigin accepts the configured origins and any origin whose host ends
// with one of the suffixes.
func allowOrigin(origins, suffixes []string) func(*http.Request, string) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(_ *http.Request, origin string) bool {
		if allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(u.Hostname(), suffix) {
				return true
			}
		}
		return false
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "EduScore API is running!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func welcome(w http.ResponseWriter, _ *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Welcome to EduScore API",
		"version": Version,
		"endpoints": map[string]string{
			"health":        "/health",
			"metrics":       "/metrics",
			"auth":          "/api/auth",
			"users":         "/api/users",
			"subjects":      "/api/subjects",
			"exams":         "/api/exams",
			"scores":        "/api/scores",
			"classes":       "/api/classes",
			"notifications": "/api/notifications",
		},
	})
}
