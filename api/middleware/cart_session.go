package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartSessionHeader carries the anonymous cart id the storefront generates and keeps in
// local storage.
const CartSessionHeader = "X-Cart-Session"

const maxCartSessionLength = 128

// CartSession copies a well-formed cart session header into the context. Handlers
// that need a cart reject requests without one.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := strings.TrimSpace(r.Header.Get(CartSessionHeader))
			if session == "" || len(session) > maxCartSessionLength || strings.ContainsAny(session, " :\t") {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithCartSession(r.Context(), session)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
