package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/pratik-mahalle/alertroute/internal/config"
)

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// AllowedOrigins returns the frontend URL and the configured extra origins.
// Local dev servers are added in development.
func AllowedOrigins(cfg config.ServerConfig) []string {
	seen := make(map[string]bool)
	var origins []string
	add := func(list ...string) {
		for _, o := range list {
			if o != "" && !seen[o] {
				seen[o] = true
				origins = append(origins, o)
			}
		}
	}

	add(cfg.FrontendURL)
	add(cfg.AllowedOrigins...)
	if cfg.Environment == "development" {
		add(devOrigins...)
	}
	return origins
}

// CORS lets browser dashboards call the API. Requests carry no cookies, so
// credentials stay disabled.
func CORS(cfg config.ServerConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: AllowedOrigins(cfg),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	})
}
