package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a CORS middleware for the given origins. An empty list allows
// the local frontend only.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Correlation-ID", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"X-Correlation-ID", "Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
