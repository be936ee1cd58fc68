package useragent

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// ExtractDeviceInfo parses the User-Agent header into a short
// human-readable device description for session listings.
func ExtractDeviceInfo(r *http.Request) string {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		return "Unknown Device"
	}

	browser := "Unknown Browser"
	if strings.Contains(ua, "Chrome/") && !strings.Contains(ua, "Edg") {
		browser = "Chrome"
	} else if strings.Contains(ua, "Safari/") && !strings.Contains(ua, "Chrome") {
		browser = "Safari"
	} else if strings.Contains(ua, "Firefox/") {
		browser = "Firefox"
	} else if strings.Contains(ua, "Edg/") {
		browser = "Edge"
	}

	os := "Unknown OS"
	if strings.Contains(ua, "Windows") {
		os = "Windows"
	} else if strings.Contains(ua, "Mac OS X") {
		os = "macOS"
	} else if strings.Contains(ua, "Linux") {
		os = "Linux"
	} else if strings.Contains(ua, "Android") {
		os = "Android"
	} else if strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") {
		os = "iOS"
	}

	return browser + " on " + os
}

// ExtractIPAddress gets the real IP address from the request.
// Handles proxies and load balancers by checking X-Forwarded-For and X-Real-IP headers.
func ExtractIPAddress(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}

// DeviceID returns a stable device identifier for the request. Clients
// that manage their own id send it in X-Device-Id; otherwise a SHA-256
// fingerprint is derived from stable request attributes.
func DeviceID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Device-Id")); id != "" {
		return id
	}

	sanitizedIP := strings.NewReplacer(".", "", ":", "").Replace(ExtractIPAddress(r))
	parts := []string{
		r.Header.Get("User-Agent"),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Sec-Ch-Ua"),
		r.Header.Get("Sec-Ch-Ua-Platform"),
		sanitizedIP,
	}

	var fingerprint []string
	for _, p := range parts {
		if p != "" {
			fingerprint = append(fingerprint, p)
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(fingerprint, "|")))
	return hex.EncodeToString(sum[:])
}
