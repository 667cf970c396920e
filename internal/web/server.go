// Package web is the HTTP front of the reception desk: check-in form,
// call/serve actions and the monthly report. All data goes through
// storage.Store.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Tiliavir/reception/internal/model"
	"github.com/Tiliavir/reception/internal/report"
	"github.com/Tiliavir/reception/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Options configures a Server.
type Options struct {
	// CorsAllowedOrigins enables CORS for the listed origins. Empty disables
	// the CORS middleware.
	CorsAllowedOrigins []string
}

// Server holds the handlers' dependencies.
type Server struct {
	store *storage.Store
	log   *zap.Logger
	tmpl  *template.Template
	opts  Options
}

// NewServer parses the embedded templates and returns a Server.
func NewServer(store *storage.Store, log *zap.Logger, opts Options) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"idnumber": report.FormatIDNumber,
		"called":   model.CalledLabel,
		"datetime": func(t time.Time) string { return t.Format("02/01/2006 15:04") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Server{store: store, log: log, tmpl: tmpl, opts: opts}, nil
}

// Router returns the full handler with middleware applied.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recovery, requestID, s.accessLog, metricsMiddleware)

	static, _ := fs.Sub(staticFS, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.HandleFunc("/favicon.ico", s.Favicon).Methods(http.MethodGet)

	r.HandleFunc("/", s.ReceptionPage).Methods(http.MethodGet)
	r.HandleFunc("/reception", s.ReceptionPage).Methods(http.MethodGet)
	r.HandleFunc("/reception", s.CheckIn).Methods(http.MethodPost)
	r.HandleFunc("/call/{id}/{state}", s.ToggleCalled).Methods(http.MethodPost)
	r.HandleFunc("/update/{id}", s.Update).Methods(http.MethodPost)

	r.HandleFunc("/report", s.ReportPage).Methods(http.MethodGet)
	r.HandleFunc("/report/csv", s.ReportCSV).Methods(http.MethodGet)
	r.HandleFunc("/report/pdf", s.ReportPDF).Methods(http.MethodGet)

	r.HandleFunc("/health", s.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if len(s.opts.CorsAllowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.CorsAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		MaxAge:         300,
	})
	return c.Handler(r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.String("data_dir", s.store.Dir()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
