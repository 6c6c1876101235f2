package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/khadamat/khadamat/internal/platform/httpx"
)

type tokenKey struct{}

// RequireBearer rejects requests without a bearer token. The token is not
// verified here; the marketplace API does that on every forwarded call.
// Browsers asking for HTML are redirected to loginPath instead.
func RequireBearer(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if loginPath != "" && strings.Contains(r.Header.Get("Accept"), "text/html") {
					http.Redirect(w, r, loginPath, http.StatusSeeOther)
					return
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey{}, token)))
		})
	}
}

// TokenFromContext returns the bearer token stored by RequireBearer.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
