package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	zatcahttp "tabadul/ms_zatca_gateway/internal/adapters/http/zatca"
	"tabadul/ms_zatca_gateway/internal/infrastructure/http/middleware"
)

// Server hosts the gateway's HTTP API.
type Server struct {
	log        *slog.Logger
	httpServer *http.Server
	auth       *middleware.JWTAuthenticator
}

// Options are the construction inputs for the server.
type Options struct {
	Addr          string
	Logger        *slog.Logger
	Handler       *zatcahttp.Handler
	Authenticator *middleware.JWTAuthenticator // Optional: nil disables inbound auth
}

// New creates the server with all routes registered.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(opts.Logger))
	if opts.Authenticator != nil {
		r.Use(opts.Authenticator.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/zatca", func(r chi.Router) {
		r.Post("/generate-invoice", opts.Handler.GenerateInvoice)
		r.Post("/generate-csr", opts.Handler.GenerateCSR)
		r.Post("/sign-invoice", opts.Handler.SignInvoice)
		r.Post("/report-invoice", opts.Handler.ReportInvoice)
	})

	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{log: opts.Logger, httpServer: srv, auth: opts.Authenticator}, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.Close()
		return err
	case err := <-errCh:
		s.Close()
		return err
	}
}

// Close releases resources held by the server.
func (s *Server) Close() {
	if s.auth != nil {
		s.auth.Close()
	}
}
