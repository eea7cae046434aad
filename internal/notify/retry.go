package notify

import (
	"context"
	"errors"
	"net"
	"net/url"
	"regexp"
	"time"

	tele "gopkg.in/telebot.v3"
)

var tokenPattern = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// isTransient reports whether a failed delivery is worth retrying. Flood
// control, server-side errors, and network timeouts are transient; anything
// the API rejected outright (blocked bot, unknown chat) is not.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// retryDelay honors Telegram's retry-after hint when present, otherwise
// backs off linearly with the attempt number.
func retryDelay(err error, attempt int, base time.Duration) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}

	return base * time.Duration(attempt)
}

// sanitizeError strips bot tokens that the Telegram client may echo back in
// error messages before they reach the logs.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}

	return tokenPattern.ReplaceAllString(err.Error(), "bot<redacted>")
}
