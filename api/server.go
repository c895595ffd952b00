/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the form

ROUTE GROUPS:
  /api/healthz, /api/options     Public
  /api/scenarios                 Public list; loading needs a session
  /api/auth/otp, /api/auth/verify Public, login flow
  everything else under /api     Bearer token + open session
  /*                             Static files (form)

STATIC FILE SERVING:
  Serves the built form from RouterConfig.StaticDir when it exists.
  Falls back to index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: RequireSession
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	AllowedOrigins []string
	StaticDir      string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-New-Token", "X-Stale", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)
		r.Get("/options", h.Options)
		r.Get("/scenarios", h.ListScenarios)

		r.Post("/auth/otp", h.SendOTP)
		r.Post("/auth/verify", h.VerifyOTP)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Post("/auth/logout", h.Logout)

			r.Get("/entries", h.ListEntries)
			r.Get("/entries/export", h.ExportEntries)
			r.Get("/status", h.GetStatus)
			r.Post("/date", h.SelectDate)

			r.Post("/rows/validate", h.ValidateRow)
			r.Post("/work/check", h.CheckWork)
			r.Post("/work", h.SubmitWork)
			r.Post("/leave", h.SubmitLeave)

			r.Post("/scenarios/load", h.LoadScenario)

			r.Route("/draft", func(r chi.Router) {
				r.Get("/", h.GetDraft)
				r.Put("/", h.SaveDraft)
				r.Delete("/", h.ClearDraft)
			})
		})
	})

	r.Get("/*", staticHandler(cfg.StaticDir))
	return r
}

func staticHandler(dir string) http.HandlerFunc {
	if dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			exe, _ := os.Executable()
			dir = filepath.Join(filepath.Dir(exe), filepath.Base(dir))
		}
	}

	if _, err := os.Stat(dir); dir == "" || err != nil {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Timesheet</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Timesheet API</h1>
<p>No form is installed. Set <code>server.static_dir</code> to serve one.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/healthz">/api/healthz</a> - Health check</li>
<li><a href="/api/options">/api/options</a> - Form options</li>
<li>POST /api/auth/otp, /api/auth/verify - Log in</li>
</ul>
</body>
</html>`))
		}
	}

	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		fullPath := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	}
}
