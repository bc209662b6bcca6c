package digest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// ErrEmptyDate is returned by ParseDate for blank input.
var ErrEmptyDate = errors.New("date is empty")

// ParseDate parses an RFC 5322 style date line such as
// "Mon, 3 Jun 2024 12:00:00 GMT". The zone offset of the input is kept.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrEmptyDate
	}
	t, err := mail.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// NormalizeDate returns the parsed date or nil. Failures are logged at warn
// level and never returned.
func NormalizeDate(raw string, logger *slog.Logger) *time.Time {
	t, err := ParseDate(raw)
	if err != nil {
		if logger != nil {
			logger.Warn("unparseable digest date", "rawDate", raw, "err", err)
		}
		return nil
	}
	return &t
}

// FormatISO renders a normalized date as ISO-8601 with its offset.
func FormatISO(t time.Time) string {
	return t.Format(time.RFC3339)
}
