package middleware

import (
	"net/http"

	"github.com/rpattn/fieldtrack/internal/entityloader"
)

// DataLoaderMiddleware attaches a request-scoped entity loader so reference
// names resolved while rendering notes are batched per request.
func DataLoaderMiddleware(repo entityloader.EntitySource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := entityloader.NewEntityLoader(repo)
			ctx := entityloader.WithLoader(r.Context(), loader.Loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
