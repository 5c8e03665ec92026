package clientip

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders lists the headers consulted for the client IP, most
// trustworthy first.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP extracts the real client IP address from the request. Proxy headers
// are checked in priority order before falling back to RemoteAddr. All
// candidates are validated and normalized; when nothing validates, the raw
// RemoteAddr is returned so callers always get a non-empty string.
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}

		// X-Forwarded-For may carry a chain "client, proxy1, proxy2";
		// the leftmost entry is the original client.
		if header == "X-Forwarded-For" {
			value, _, _ = strings.Cut(value, ",")
		}

		if ip := normalizeIP(strings.TrimSpace(value)); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := normalizeIP(host); ip != "" {
		return ip
	}

	return r.RemoteAddr
}

// normalizeIP validates a candidate address and returns its canonical form.
// Unparseable and unspecified (0.0.0.0, ::) addresses yield an empty string.
func normalizeIP(candidate string) string {
	ip := net.ParseIP(candidate)
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
