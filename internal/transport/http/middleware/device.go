package middleware

import (
	"context"
	"net/http"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
	"github.com/adityanagar10/buzzline/backend/pkg/useragent"
)

// WithDeviceContext derives the login's device fingerprint from the
// request and stashes it for the handlers.
func WithDeviceContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := domain.DeviceContext{
			IPAddress: useragent.ExtractIPAddress(r),
			UserAgent: r.Header.Get("User-Agent"),
			DeviceID:  useragent.DeviceID(r),
		}
		ctx := context.WithValue(r.Context(), deviceKey, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// DeviceFromRequest returns the device context, deriving it on the spot
// for routes that skip the middleware.
func DeviceFromRequest(r *http.Request) domain.DeviceContext {
	if device, ok := r.Context().Value(deviceKey).(domain.DeviceContext); ok {
		return device
	}
	return domain.DeviceContext{
		IPAddress: useragent.ExtractIPAddress(r),
		UserAgent: r.Header.Get("User-Agent"),
		DeviceID:  useragent.DeviceID(r),
	}
}
