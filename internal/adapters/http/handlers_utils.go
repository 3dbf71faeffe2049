package http

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
)

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// readIP prefers the first X-Forwarded-For entry, then X-Real-IP, then the
// socket address.
func readIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", "invalid input"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrAlreadySettled):
		return http.StatusConflict, "ALREADY_SETTLED", "order already settled"
	case errors.Is(err, domain.ErrOrderNotSettled):
		return http.StatusConflict, "NOT_SETTLED", "order payment not verified yet"
	case errors.Is(err, domain.ErrEmailDisabled):
		return http.StatusConflict, "EMAIL_DISABLED", "email delivery is not configured"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"
	case errors.Is(err, domain.ErrConfigMissing):
		return http.StatusInternalServerError, "CONFIG_MISSING", "service configuration incomplete"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func writeMappedError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(r.Context(), operation, status, code, msg, err)
	writeError(w, status, code, msg)
}
