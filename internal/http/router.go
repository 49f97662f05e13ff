package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/inkcircle/inkcircle-api/internal/auth"
	"github.com/inkcircle/inkcircle-api/internal/book"
	"github.com/inkcircle/inkcircle-api/internal/config"
	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/metrics"
	"github.com/inkcircle/inkcircle-api/internal/review"
	"github.com/inkcircle/inkcircle-api/internal/tag"
	"github.com/inkcircle/inkcircle-api/internal/user"
)

// Handlers bundles the HTTP handlers the router wires up
type Handlers struct {
	Auth   *auth.Handler
	User   *user.Handler
	Book   *book.Handler
	Review *review.Handler
	Tag    *tag.Handler
}

// NewRouter creates and configures the HTTP router. Protected resources sit
// behind the explicit RequireAuth -> RequireVerified -> RequireRoles chain;
// the admin-only review listing swaps in a narrower role set.
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(metrics.Middleware)            // Request counter and duration
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	} else {
		log.Println("Swagger UI disabled (production mode)")
	}

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Auth.Signup)
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
		r.Get("/verify/{token}", h.Auth.VerifyEmail)
		r.Post("/password-reset-request", h.Auth.ForgotPassword)
		r.Post("/password-reset-confirm", h.Auth.ResetPassword)
		r.Post("/resend-verification", h.Auth.ResendVerification)
	})

	// Protected routes: any verified user
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Use(authMiddleware.RequireVerified)
		r.Use(auth.RequireRoles(user.RoleAdmin, user.RoleUser))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", h.User.Me)
			r.Patch("/me", h.User.UpdateMe)
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.Book.List)
			r.Post("/", h.Book.Create)
			r.Get("/mine", h.Book.ListMine)
			r.Get("/user/{userID}", h.Book.ListByUser)

			r.Route("/{bookID}", func(r chi.Router) {
				r.Get("/", h.Book.Get)
				r.Patch("/", h.Book.Update)
				r.Delete("/", h.Book.Delete)

				r.Get("/reviews", h.Review.ListByBook)
				r.Post("/reviews", h.Review.Create)

				r.Get("/tags", h.Tag.ListByBook)
				r.Post("/tags", h.Tag.ApplyToBook)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.Tag.List)
			r.Post("/", h.Tag.Create)
			r.Delete("/{id}", h.Tag.Delete)
		})

		r.Get("/reviews/{id}", h.Review.Get)
		r.Delete("/reviews/{id}", h.Review.Delete)
	})

	// Admin-only routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Use(authMiddleware.RequireVerified)
		r.Use(auth.RequireRoles(user.RoleAdmin))

		r.Get("/reviews", h.Review.ListAll)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
