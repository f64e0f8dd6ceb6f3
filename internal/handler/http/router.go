package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/paycrow/paycrow-backend-go/internal/handler/http/middleware"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/jwt"
)

func NewRouter(
	jwtService jwt.Service,
	authHandler AuthHandler,
	ledgerHandler LedgerHandler,
	offerHandler OfferHandler,
	upkeepHandler UpkeepHandler,
	notificationHandler NotificationHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "paycrow"),
		slog.String("version", "v1.0.0"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// The stream authenticates itself via a token query parameter.
		r.Get("/notifications/stream", notificationHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Route("/ledger", func(r chi.Router) {
				r.Post("/deposit", ledgerHandler.Deposit)
				r.Get("/balance", ledgerHandler.Balance)
				r.Post("/required-fund", ledgerHandler.RequiredFund)
				r.Post("/withdraw", ledgerHandler.Withdraw)
				r.Get("/payments", ledgerHandler.History)
			})

			r.Route("/offers", func(r chi.Router) {
				r.Post("/", offerHandler.Create)
				r.Get("/", offerHandler.ListMine)

				r.Route("/{offerID}", func(r chi.Router) {
					r.Get("/", offerHandler.Get)
					r.Get("/payments", offerHandler.Payments)
					r.Post("/sign", offerHandler.Sign)
					r.Post("/close", offerHandler.Close)
					r.Post("/pay", offerHandler.PayMonthly)
					r.Post("/hours", offerHandler.AddWorkedHours)
					r.Post("/pay-hours", offerHandler.PayWorkedHours)
					r.Post("/fund", offerHandler.Fund)
					r.Post("/withdraw", offerHandler.Withdraw)
				})
			})

			r.Route("/upkeep", func(r chi.Router) {
				r.Get("/check", upkeepHandler.Check)
				r.Post("/trigger", upkeepHandler.Trigger)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Post("/mark-read", notificationHandler.MarkAsRead)
				r.Post("/mark-all-read", notificationHandler.MarkAllAsRead)
			})
		})
	})
	return r
}
