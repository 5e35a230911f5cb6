package httpapi

import (
	"net/http"
	"strings"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

func (s *Server) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := complaint.ParseActorKind(r.Header.Get(headerActorKind))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or unknown "+headerActorKind)
			return
		}
		a := &complaint.Actor{
			Kind: kind,
			ID:   strings.TrimSpace(r.Header.Get(headerActorID)),
			Name: strings.TrimSpace(r.Header.Get(headerActorName)),
		}
		if a.ID == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", headerActorID+" required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), a)))
	})
}

func (s *Server) requireKind(kinds ...complaint.ActorKind) func(http.Handler) http.Handler {
	allowed := make(map[complaint.ActorKind]struct{})
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := actorFromContext(r.Context())
			if a == nil {
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing actor")
				return
			}
			if _, ok := allowed[a.Kind]; !ok {
				respondError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
