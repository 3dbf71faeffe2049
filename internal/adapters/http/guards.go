package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

// maxWebhookBody bounds the raw payload the signature guard will buffer.
const maxWebhookBody = 1 << 20

// signatureHeaderCandidates are the provider-specific headers a webhook
// signature may travel in, checked in order.
var signatureHeaderCandidates = []string{
	"X-Webhook-Signature",
	"X-Signature",
	"X-Moralis-Signature",
}

// IPGuardConfig controls the IP whitelist admission layer.
type IPGuardConfig struct {
	Enabled    bool
	AllowedIPs []string
	// DevMode additionally admits localhost callers regardless of the list.
	DevMode bool
}

// IPWhitelistGuard rejects callers outside the configured allow-set before
// any business logic runs. When the feature is disabled every caller
// passes; that is a deliberate, logged default, not a silent one.
func IPWhitelistGuard(cfg IPGuardConfig) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedIPs))
	for _, ip := range cfg.AllowedIPs {
		if trimmed := strings.TrimSpace(ip); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}
	if !cfg.Enabled {
		httpLogger().Info("ip whitelist disabled, all webhook callers admitted",
			"operation", "ip_whitelist_guard",
		)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			callerIP := readIP(r)
			if cfg.DevMode && isLocalhost(callerIP) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[callerIP]; !ok {
				logHTTPOperationError(r.Context(), "ip_whitelist_guard",
					http.StatusForbidden, "FORBIDDEN", "caller ip not allowed", nil)
				writeError(w, http.StatusForbidden, "FORBIDDEN", "caller not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isLocalhost(ip string) bool {
	switch ip {
	case "127.0.0.1", "::1", "localhost":
		return true
	}
	return false
}

// SignatureGuardConfig configures HMAC admission for one webhook channel.
type SignatureGuardConfig struct {
	// Secret is the shared HMAC-SHA256 key. Empty means verification is
	// disabled (dev mode): requests pass with a loud warning. Production
	// bootstrap refuses to start without a secret.
	Secret string
	// Channel names the webhook channel in logs.
	Channel string
}

// SignatureGuard verifies an HMAC-SHA256 signature over the raw, unparsed
// request body. The signature may arrive in any of the known provider
// headers, with or without a 0x prefix. Comparison is constant-time; that
// is a functional requirement, not an optimization.
func SignatureGuard(cfg SignatureGuardConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Secret == "" {
				httpLogger().WarnContext(r.Context(), "webhook signature verification disabled, no secret configured",
					"operation", "signature_guard",
					"outcome", "dev_mode_pass",
					"channel", cfg.Channel,
				)
				next.ServeHTTP(w, r)
				return
			}

			rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(rawBody))

			provided := signatureFromHeaders(r)
			if provided == "" {
				logHTTPOperationError(r.Context(), "signature_guard",
					http.StatusUnauthorized, "UNAUTHORIZED", "missing webhook signature", nil)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing webhook signature")
				return
			}

			if !verifySignature(cfg.Secret, rawBody, provided) {
				logHTTPOperationError(r.Context(), "signature_guard",
					http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature", nil)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func signatureFromHeaders(r *http.Request) string {
	for _, name := range signatureHeaderCandidates {
		if value := strings.TrimSpace(r.Header.Get(name)); value != "" {
			return value
		}
	}
	return ""
}

// verifySignature computes HMAC-SHA256 over the raw body and compares it
// in constant time against the provided hex digest. A 0x prefix on the
// provided value is normalized away, case-insensitively.
func verifySignature(secret string, rawBody []byte, provided string) bool {
	normalized := strings.TrimSpace(provided)
	if len(normalized) >= 2 && strings.EqualFold(normalized[:2], "0x") {
		normalized = normalized[2:]
	}
	providedDigest, err := hex.DecodeString(strings.ToLower(normalized))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), providedDigest)
}
