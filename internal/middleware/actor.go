package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/handlers"
)

// ActorMiddleware reads the acting user's ID from a header set by the
// upstream gateway.
type ActorMiddleware struct {
	header string
}

func NewActorMiddleware(header string) *ActorMiddleware {
	if header == "" {
		header = "X-User-ID"
	}
	return &ActorMiddleware{header: header}
}

// Authenticate adds the actor to the context when the header is present.
// A malformed header is rejected; a missing one is passed through.
func (m *ActorMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(m.header))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		actorID, err := uuid.Parse(raw)
		if err != nil || actorID == uuid.Nil {
			writeError(w, http.StatusBadRequest, "Invalid "+m.header+" header")
			return
		}

		ctx := handlers.SetActorInContext(r.Context(), actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor rejects requests without an actor with 401.
func (m *ActorMiddleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := handlers.GetActorFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
