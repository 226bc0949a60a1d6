package http

import (
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRateLimiterBudget(t *testing.T) {
	rl := newRateLimiter()
	defer rl.shutdown()
	metrics := &securityMetrics{}

	for i := 0; i < writeBudget; i++ {
		if !rl.allow("192.0.2.10", metrics) {
			t.Fatalf("write %d rejected inside the budget", i+1)
		}
	}
	if rl.allow("192.0.2.10", metrics) {
		t.Error("write beyond the budget allowed")
	}
	if hits := atomic.LoadInt64(&metrics.rateLimitHits); hits != 1 {
		t.Errorf("rateLimitHits = %d, want 1", hits)
	}

	// Another client has its own window.
	if !rl.allow("192.0.2.11", metrics) {
		t.Error("fresh client rejected")
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct client", "203.0.113.7:51234", "", "203.0.113.7"},
		{"behind local proxy", "127.0.0.1:8080", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain keeps first hop", "10.0.0.5:443", "203.0.113.7, 10.0.0.5", "203.0.113.7"},
		{"spoofed header from untrusted peer", "203.0.113.7:51234", "198.51.100.1", "203.0.113.7"},
		{"garbage forwarded value", "127.0.0.1:8080", "not-an-ip", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/invoices", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"dashboard page", "GET", "/ui/calendar?year=2025&month=10", "Mozilla/5.0", false},
		{"invoice form post", "POST", "/invoices", "Mozilla/5.0", false},
		{"path traversal", "GET", "/static/../../etc/passwd", "Mozilla/5.0", true},
		{"wordpress probe", "GET", "/wp-admin/setup.php", "Mozilla/5.0", true},
		{"sql injection in query", "GET", "/ui/ledger?year=1+union+select+1", "Mozilla/5.0", true},
		{"scanner user agent", "GET", "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "Mozilla/5.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &securityMetrics{}
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)

			if got := detectSuspiciousRequest(r, metrics); got != tt.want {
				t.Errorf("detectSuspiciousRequest = %v, want %v", got, tt.want)
			}
			wantCount := int64(0)
			if tt.want {
				wantCount = 1
			}
			if got := atomic.LoadInt64(&metrics.suspiciousRequests); got != wantCount {
				t.Errorf("suspiciousRequests = %d, want %d", got, wantCount)
			}
		})
	}
}
