package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Routes returns the handler mounted at /api/auth.
func Routes(p Provider, logger *logrus.Logger) http.Handler {
	if logger == nil {
		logger = logrus.New()
	}

	r := chi.NewRouter()

	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		ctx, err := p.Authenticate(r.Context(), r)
		if err != nil {
			logger.WithError(err).Debug("Authentication failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		user, _ := UserFromContext(ctx)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"user": user,
		})
	})

	r.Post("/verify", func(w http.ResponseWriter, r *http.Request) {
		if _, err := p.Authenticate(r.Context(), r); err != nil {
			logger.WithError(err).Debug("Token verification failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
