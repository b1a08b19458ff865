package server

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clickmoment/clickmoment/internal/auth"
	"github.com/clickmoment/clickmoment/internal/database"
	"github.com/clickmoment/clickmoment/internal/httputil"
	"github.com/clickmoment/clickmoment/internal/plans"
	"github.com/clickmoment/clickmoment/internal/profile"
	"github.com/clickmoment/clickmoment/internal/project"
	"github.com/clickmoment/clickmoment/internal/proxy"
	"github.com/clickmoment/clickmoment/internal/ratelimit"
	"github.com/clickmoment/clickmoment/internal/validate"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB                 database.DBTX
	Pinger             Pinger
	Storage            project.ObjectStorage
	WebFS              fs.FS
	JWTSecret          string
	BaseURL            string
	MaxUploadBytes     int64
	S3PublicEndpoint   string
	AnalysisBackendURL string
	EmailSender        auth.EmailSender
}

type Server struct {
	router         chi.Router
	pinger         Pinger
	authHandler    *auth.Handler
	projectHandler *project.Handler
	profileHandler *profile.Handler
	proxyHandler   *proxy.Handler
	webFS          fs.FS
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:          cfg.BaseURL,
		StorageEndpoint:  cfg.S3PublicEndpoint,
		AnalysisEndpoint: cfg.AnalysisBackendURL,
	}))

	s := &Server{router: r, pinger: cfg.Pinger, webFS: cfg.WebFS}

	if cfg.DB != nil {
		jwtSecret := cfg.JWTSecret
		if jwtSecret == "" {
			log.Fatal("JWT_SECRET is required; set the environment variable")
		}

		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}

		secureCookies := strings.HasPrefix(baseURL, "https://")
		s.authHandler = auth.NewHandler(cfg.DB, jwtSecret, secureCookies)
		if cfg.EmailSender != nil {
			s.authHandler.SetEmailSender(cfg.EmailSender, baseURL)
		}
		s.projectHandler = project.NewHandler(project.NewStore(cfg.DB), cfg.Storage, cfg.MaxUploadBytes)
		s.profileHandler = profile.NewHandler(profile.NewStore(cfg.DB))
	}

	s.proxyHandler = proxy.NewHandler(cfg.AnalysisBackendURL)

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleFieldLimits)
	s.router.Get("/api/plans", s.handlePlans)

	if s.authHandler != nil {
		authLimiter := ratelimit.NewLimiter(0.5, 5)
		s.router.Route("/api/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", s.authHandler.Register)
			r.Post("/login", s.authHandler.Login)
			r.Post("/refresh", s.authHandler.Refresh)
			r.Post("/logout", s.authHandler.Logout)
			r.Post("/forgot-password", s.authHandler.ForgotPassword)
			r.Post("/reset-password", s.authHandler.ResetPassword)
		})
		s.router.With(s.authHandler.Middleware).Get("/api/auth/me", s.authHandler.Me)
	}

	if s.projectHandler != nil {
		apiLimiter := ratelimit.NewLimiter(2, 10)
		s.router.Route("/api/projects", func(r chi.Router) {
			r.Use(apiLimiter.Middleware)
			r.Use(s.authHandler.Middleware)
			r.Get("/", s.projectHandler.List)
			r.Post("/", s.projectHandler.Create)
			r.Get("/{id}", s.projectHandler.Get)
			r.Patch("/{id}", s.projectHandler.Update)
			r.Delete("/{id}", s.projectHandler.Delete)
			r.Post("/{id}/upload-url", s.projectHandler.UploadURL)
			r.Get("/{id}/analyses", s.projectHandler.ListAnalyses)
			r.Post("/{id}/analyses", s.projectHandler.AddAnalysis)
		})
		s.router.Route("/api/profile", func(r chi.Router) {
			r.Use(apiLimiter.Middleware)
			r.Use(s.authHandler.Middleware)
			r.Get("/", s.profileHandler.Get)
			r.Put("/", s.profileHandler.Save)
			r.Get("/limits", s.profileHandler.Limits)
			r.Post("/usage", s.profileHandler.RecordUsage)
		})
	}

	// The analysis proxy answers its own CORS preflight, so it takes every
	// method on these two paths.
	s.router.HandleFunc("/api/thumbnails/generate", s.proxyHandler.GenerateThumbnails)
	s.router.HandleFunc("/api/refresh-frame-urls", s.proxyHandler.RefreshFrameURLs)

	if s.webFS != nil {
		spa := newSPAFileServer(s.webFS)
		s.router.NotFound(spa.ServeHTTP)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleFieldLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]plans.FreePlan{"free": plans.Free})
}
