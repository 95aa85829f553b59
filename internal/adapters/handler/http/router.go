package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

type Handlers struct {
	Auth  *AuthHandler
	Polls *PollHandler
	Votes *VoteHandler
	Users *UserHandler
	Feed  *FeedHandler
}

type RouterConfig struct {
	CORSOrigins []string
	Tokens      tokenParser
	Gate        ports.AuthGate
	Logger      logging.Logger
}

func NewHandler(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.Logger != nil {
		r.Use(WithLogger(cfg.Logger))
	}
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(Authenticate(cfg.Tokens))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Auth.SignUp)
		r.Post("/signin", h.Auth.SignIn)
		r.Post("/google", h.Auth.GoogleCallback)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/feed", h.Feed.Stream)

		r.With(RequireUser(cfg.Gate)).Get("/me", h.Users.GetMe)

		r.Route("/polls", func(r chi.Router) {
			r.Get("/", h.Polls.ListPolls)
			r.Post("/", h.Polls.CreatePoll)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Polls.GetPoll)
				r.Delete("/", h.Polls.DeletePoll)
				r.Get("/results", h.Polls.Results)
				r.Post("/votes", h.Votes.CastVote)
				r.Get("/my-vote", h.Votes.MyVote)
			})
		})
	})

	return r
}
