// Package http serves the dashboard: server-rendered pages with HTMX
// partials for the calendar, invoices and the finance ledger.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"rechnerei/internal/cache"
	"rechnerei/internal/core"
	"rechnerei/internal/document"
	"rechnerei/internal/services"
	"rechnerei/internal/storage"
	appweb "rechnerei/web"
)

type Server struct {
	http.Server
	templates *template.Template

	repo       *storage.Repository
	invoiceSvc *services.InvoiceService
	ledgerSvc  *services.LedgerService
	documents  *document.Renderer
	weekStart  time.Weekday

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Ledger months are recomputed on every write, so a short TTL is
	// enough to keep repeated HTMX refreshes cheap.
	ledgerCache  *cache.LRUCache[services.MonthLedger]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes, templates and caches into a ready-to-run
// http.Server.
func NewServer(addr string, repo *storage.Repository, invoiceSvc *services.InvoiceService, ledgerSvc *services.LedgerService, documents *document.Renderer, weekStart time.Weekday) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:         repo,
		invoiceSvc:   invoiceSvc,
		ledgerSvc:    ledgerSvc,
		documents:    documents,
		weekStart:    weekStart,
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
		ledgerCache:  cache.NewLRUCache[services.MonthLedger](24, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.ledgerCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(template.FuncMap{
		"euro":    func(m core.Money) string { return m.String() },
		"cents":   func(c int64) string { return core.Money{Cents: c}.String() },
		"minutes": core.FormatMinutes,
		"weekday": shortWeekday,
		// The chart palette uses CSS custom properties, which the
		// auto-escaper would otherwise reject inside style attributes.
		"css": func(s string) template.CSS { return template.CSS(s) },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))

	// Calendar partials
	mux.HandleFunc("/ui/calendar", s.withSecurityHeaders(s.handleCalendar))
	mux.HandleFunc("/ui/week-summary", s.withSecurityHeaders(s.handleWeekSummary))

	// Master data
	mux.HandleFunc("/customers", s.withSecurityHeaders(s.handleCustomers))
	mux.HandleFunc("/customers/delete", s.withSecurityHeaders(s.handleDeleteCustomer))
	mux.HandleFunc("/projects", s.withSecurityHeaders(s.handleProjects))
	mux.HandleFunc("/projects/delete", s.withSecurityHeaders(s.handleDeleteProject))
	mux.HandleFunc("/catalog", s.withSecurityHeaders(s.handleCatalog))
	mux.HandleFunc("/catalog/delete", s.withSecurityHeaders(s.handleDeleteCatalogItem))

	// Time tracking
	mux.HandleFunc("/time-entries", s.withSecurityHeaders(s.handleCreateTimeEntry))
	mux.HandleFunc("/time-entries/delete", s.withSecurityHeaders(s.handleDeleteTimeEntry))

	// Invoices
	mux.HandleFunc("/ui/invoices", s.withSecurityHeaders(s.handleInvoiceList))
	mux.HandleFunc("/ui/invoice-number", s.withSecurityHeaders(s.handleInvoiceNumberPreview))
	mux.HandleFunc("/invoices", s.withSecurityHeaders(s.handleCreateInvoice))
	mux.HandleFunc("/invoices/status", s.withSecurityHeaders(s.handleInvoiceStatus))
	mux.HandleFunc("/invoices/delete", s.withSecurityHeaders(s.handleDeleteInvoice))
	mux.HandleFunc("/invoices/document", s.withSecurityHeaders(s.handleInvoiceDocument))

	// Finances
	mux.HandleFunc("/ui/ledger", s.withSecurityHeaders(s.handleLedger))
	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("/transactions/delete", s.withSecurityHeaders(s.handleDeleteTransaction))
	mux.HandleFunc("/recurring", s.withSecurityHeaders(s.handleCreateRecurring))
	mux.HandleFunc("/recurring/delete", s.withSecurityHeaders(s.handleDeleteRecurring))

	// Settings
	mux.HandleFunc("/settings", s.withSecurityHeaders(s.handleSettings))

	return s
}

// Shutdown stops the HTTP server and the cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.shutdown()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				"request_id", requestID, "client_ip", clientIP, "url", r.URL.Path)
		}

		// Writes are rate limited, reads are not.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Zu viele Anfragen. Bitte später erneut versuchen.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.GetCompanySettings(r.Context()); err != nil {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed",
			"template", name, "error", err)
	}
}

func (s *Server) invalidateLedger(t time.Time) {
	s.ledgerCache.Delete(ledgerCacheKey(t.Year(), t.Month()))
}

func shortWeekday(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "Mo"
	case time.Tuesday:
		return "Di"
	case time.Wednesday:
		return "Mi"
	case time.Thursday:
		return "Do"
	case time.Friday:
		return "Fr"
	case time.Saturday:
		return "Sa"
	default:
		return "So"
	}
}
