package daemon

import (
	"crypto/subtle"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"signflow/internal/logging"
	"signflow/internal/services"
)

const requestIDHeader = "X-Request-ID"

// withRequestContext stamps the session and a correlation ID onto the request
// context. A client-supplied X-Request-ID is kept; otherwise one is generated.
// The ID is echoed in the response header.
func withRequestContext(sessionID string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		ctx := services.WithRequestID(r.Context(), rid)
		ctx = services.WithSessionID(ctx, sessionID)
		next(w, r.WithContext(ctx))
	}
}

// requireToken rejects requests without the configured bearer token. An empty
// token disables the check.
func requireToken(token string, logger *slog.Logger, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		supplied, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			logging.WarnWithContext(logging.WithContext(r.Context(), logger), "api request rejected", "api_unauthorized",
				logging.String("path", r.URL.Path),
				logging.String("remote", r.RemoteAddr),
				logging.String(logging.FieldErrorHint, "set paths.api_token to the daemon's token"),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="signflow"`)
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// requireJSON rejects requests whose Content-Type is not application/json.
func requireJSON(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = w.Write([]byte(`{"error":"content type must be application/json"}` + "\n"))
			return
		}
		next(w, r)
	}
}
