package http

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// securityMetrics counts throttled and flagged requests. Read with the
// atomic package.
type securityMetrics struct {
	rateLimitHits      int64
	suspiciousRequests int64
}

// The dashboard is meant to run behind a reverse proxy on the same
// host or LAN; only those may rewrite the client address.
var trustedProxies = []*net.IPNet{
	mustCIDR("127.0.0.0/8"),
	mustCIDR("10.0.0.0/8"),
	mustCIDR("172.16.0.0/12"),
	mustCIDR("192.168.0.0/16"),
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("bad trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func fromTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP resolves the client address for logging and write
// throttling. Forwarding headers only count when the direct peer is a
// trusted proxy, otherwise anyone could spoof their way past the
// limiter.
func extractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !fromTrustedProxy(parsed) {
		return directIP
	}

	if forwarded := firstForwardedIP(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		return forwarded
	}
	if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

// firstForwardedIP returns the leftmost valid address of an
// X-Forwarded-For chain, or "".
func firstForwardedIP(xff string) string {
	if xff == "" {
		return ""
	}
	first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}

// probePaths are fragments this app never serves; their presence means
// someone is feeling around for a different kind of software.
var probePaths = []string{
	"../", "..\\", ".env", ".git", ".ssh",
	"wp-admin", "wp-login", "phpmyadmin", ".php",
	"etc/passwd",
}

// injectionMarkers flag script or SQL injection attempts in path or
// query. Invoice, transaction and settings forms carry free text, but
// never through the URL.
var injectionMarkers = []string{
	"<script", "javascript:", "union select", "eval(",
}

var scannerAgents = []string{
	"sqlmap", "nikto", "nmap", "masscan", "gobuster", "dirb", "scanner",
}

// detectSuspiciousRequest flags requests that look like probing rather
// than dashboard use. Flagged requests are logged, not blocked; a
// false positive must never hide an invoice from its owner.
func detectSuspiciousRequest(r *http.Request, metrics *securityMetrics) bool {
	// Percent- and plus-encoding must not hide a marker.
	query := strings.ToLower(r.URL.RawQuery)
	if unescaped, err := url.QueryUnescape(query); err == nil {
		query = unescaped
	}

	suspicious := suspiciousURL(strings.ToLower(r.URL.Path)) ||
		suspiciousURL(query) ||
		suspiciousAgent(strings.ToLower(r.Header.Get("User-Agent")))

	switch r.Method {
	case "TRACE", "TRACK", "CONNECT":
		suspicious = true
	}

	// No dashboard URL comes close to this.
	if len(r.URL.String()) > 2048 {
		suspicious = true
	}

	if suspicious && metrics != nil {
		atomic.AddInt64(&metrics.suspiciousRequests, 1)
	}
	return suspicious
}

func suspiciousURL(s string) bool {
	for _, fragment := range probePaths {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	for _, marker := range injectionMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func suspiciousAgent(agent string) bool {
	for _, name := range scannerAgents {
		if strings.Contains(agent, name) {
			return true
		}
	}
	return false
}
