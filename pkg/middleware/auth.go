package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aleber123/nytt-sub001/pkg/httputil"
	"github.com/aleber123/nytt-sub001/pkg/logger"
)

// DraftTokenHeader carries the token issued when a draft is started.
const DraftTokenHeader = "X-Draft-Token"

type contextKeyType string

const draftIDKey contextKeyType = "draft_id"

// TokenVerifier validates a draft token and returns the draft ID it is
// bound to.
type TokenVerifier func(token string) (draftID string, err error)

// DraftToken requires a valid X-Draft-Token whose draft ID matches the chi
// URL parameter named param. A missing or invalid token yields 401; a token
// for another draft yields 403.
func DraftToken(verify TokenVerifier, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(DraftTokenHeader)
			if token == "" {
				writeAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing draft token")
				return
			}

			draftID, err := verify(token)
			if err != nil {
				writeAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired draft token")
				return
			}

			if draftID != chi.URLParam(r, param) {
				writeAuthError(w, r, http.StatusForbidden, "FORBIDDEN", "token does not grant access to this draft")
				return
			}

			ctx := context.WithValue(r.Context(), draftIDKey, draftID)
			ctx = logger.WithDraftID(ctx, draftID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("draft_id", draftID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DraftIDFromContext returns the draft ID authorized by DraftToken.
func DraftIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(draftIDKey).(string); ok {
		return id
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
