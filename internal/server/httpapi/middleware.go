package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/server/auth"
)

// authHandler is a handler that runs only for verified owners.
type authHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

// withAuth verifies the bearer token before the handler sees the request.
// No store or database call happens for an unauthenticated request.
func (s *HTTPServer) withAuth(next authHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, r, common.ErrUnauthenticated)
			return
		}

		ownerID, err := auth.GetOwnerIDFromToken(token, s.jwtSecret)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		next(w, r, ownerID)
	}
}

// withLogging records one line per request, tagged with a generated
// request id that is also echoed back to the client.
func (s *HTTPServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		s.logger.Info(r.Context(), "request", "requestID", requestID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
