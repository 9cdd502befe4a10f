package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"

	"schooldash/backend/internal/gateway/handlers"
	"schooldash/backend/internal/gateway/util"
	"schooldash/backend/internal/grade/session"
	"schooldash/backend/internal/grade/store"
	"schooldash/backend/internal/shared"
)

// Dependencies are the collaborators the routes are served from.
type Dependencies struct {
	Store  store.Store
	Views  *session.Manager
	Config *shared.ServiceConfig
}

// SetupRoutes configures the Chi router, middleware, and route handlers.
func SetupRoutes(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	c := deps.Config.CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}))

	scoreHandler := &handlers.ScoreHandler{Store: deps.Store}
	gradebookHandler := &handlers.GradebookHandler{Views: deps.Views}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			util.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"success":    true,
				"status":     "ok",
				"open_views": deps.Views.Len(),
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(deps.Config.Security, shared.IsDevelopment(deps.Config)))

			// Roster read and score upsert
			r.Get("/subjects", scoreHandler.ListSubjects)
			r.Get("/subjects/{subject_id}/roster", scoreHandler.GetRoster)
			r.Put("/scores", scoreHandler.UpsertScore)
			r.Get("/students/{student_id}/report", scoreHandler.GetReport)

			// Matrix views
			r.Route("/gradebook/views", func(r chi.Router) {
				r.Post("/", gradebookHandler.OpenView)
				r.Route("/{view_id}", func(r chi.Router) {
					r.Get("/", gradebookHandler.GetView)
					r.Delete("/", gradebookHandler.CloseView)
					r.Put("/semester", gradebookHandler.SetSemester)
					r.Post("/cells/input", gradebookHandler.InputCell)
					r.Post("/cells/commit", gradebookHandler.CommitCell)
					r.Post("/cells/clear", gradebookHandler.ClearCell)
					r.Post("/focus", gradebookHandler.Focus)
					r.Post("/navigate", gradebookHandler.Navigate)
					r.Get("/export", gradebookHandler.Export)
				})
			})
		})
	})

	return r
}

// AuthMiddleware validates HS256 bearer tokens and puts the subject claim on
// the request context as the acting user.
func AuthMiddleware(cfg shared.SecurityConfig, development bool) func(http.Handler) http.Handler {
	secret := []byte(cfg.JWTSecret)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.AuthDisabled && development {
				next.ServeHTTP(w, r.WithContext(shared.WithActor(r.Context(), "dev")))
				return
			}

			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			claims := &jwt.RegisteredClaims{}
			_, err = parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					util.WriteJSONError(w, http.StatusUnauthorized, "Token expired")
					return
				}
				util.WriteJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			if claims.Subject == "" {
				util.WriteJSONError(w, http.StatusUnauthorized, "Token has no subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(shared.WithActor(r.Context(), claims.Subject)))
		})
	}
}
