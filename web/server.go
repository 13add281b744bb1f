package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"f0oster/userreport/database"
	"f0oster/userreport/snapshot"
)

// RunLister is implemented by *database.DBClient.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]database.RunRecord, error)
}

// SnapshotSource is implemented by *snapshot.Store.
type SnapshotSource interface {
	Latest() (*snapshot.Snapshot, error)
	Path(snap *snapshot.Snapshot) string
}

// Server exposes archived runs and the latest snapshot as a read-only JSON API.
type Server struct {
	runs      RunLister
	snapshots SnapshotSource
	mux       *http.ServeMux
	addr      string
	log       *slog.Logger
}

// NewServer creates a new web server instance. runs may be nil when no
// archive is configured; the runs endpoint then answers 503.
func NewServer(runs RunLister, snapshots SnapshotSource, addr string, logger *slog.Logger) *Server {
	s := &Server{
		runs:      runs,
		snapshots: snapshots,
		mux:       http.NewServeMux(),
		addr:      addr,
		log:       logger.With("component", "web"),
	}
	s.registerRoutes()
	return s
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/snapshots/latest", s.handleLatestSnapshot)
	s.mux.HandleFunc("GET /api/snapshots/latest/users/{name}", s.handleLatestUser)
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting web server", slog.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Handler returns the HTTP handler for use with custom servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}
