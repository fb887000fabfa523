package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"

	"github.com/league-ledger/internal/domain"
)

type contextKey string

const identityKey contextKey = "voter_identity"

// Cookie and header names used for identity resolution. The user id header
// is stamped by the auth gateway in front of this service; anything beyond
// trusting it is the gateway's problem, not this core's.
const (
	headerUserID   = "X-User-ID"
	headerDeviceID = "X-Device-ID"
	cookieDeviceID = "device_id"
)

// IdentityMiddleware resolves the caller to a voter identity: the gateway's
// user id when authenticated, and always a best-effort device id. The device
// id prefers an explicit header or cookie; failing both it is derived from
// the caller's address and user agent and handed back as a cookie so the
// same browser keeps the same identity. This is anti-abuse, not
// authentication: it is deliberately not airtight.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := domain.VoterIdentity{
			UserID:   r.Header.Get(headerUserID),
			DeviceID: r.Header.Get(headerDeviceID),
		}

		if identity.DeviceID == "" {
			if cookie, err := r.Cookie(cookieDeviceID); err == nil && cookie.Value != "" {
				identity.DeviceID = cookie.Value
			}
		}

		if identity.DeviceID == "" {
			identity.DeviceID = fingerprintDevice(r)
			http.SetCookie(w, &http.Cookie{
				Name:     cookieDeviceID,
				Value:    identity.DeviceID,
				Path:     "/",
				MaxAge:   365 * 24 * 3600,
				HttpOnly: true,
			})
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the resolved voter identity for a request.
func IdentityFromContext(ctx context.Context) domain.VoterIdentity {
	if identity, ok := ctx.Value(identityKey).(domain.VoterIdentity); ok {
		return identity
	}
	return domain.VoterIdentity{}
}

// fingerprintDevice derives a stable device id from the remote address and
// user agent. chi's RealIP middleware has already unwrapped proxy headers by
// the time this runs.
func fingerprintDevice(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}

	sum := sha256.Sum256([]byte(host + "|" + r.UserAgent()))
	return hex.EncodeToString(sum[:])[:32]
}
