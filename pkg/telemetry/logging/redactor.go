package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// secretKeys are attribute keys whose values are always redacted,
// regardless of content.
var secretKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"token":         true,
	"secret":        true,
	"password":      true,
	"authorization": true,
}

// bearerPattern catches credentials embedded inside otherwise benign
// string values, such as copied request headers.
var bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`)

// redactSecrets is the slog ReplaceAttr hook applied to every record.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redactedValue)
	}
	if a.Value.Kind() == slog.KindString {
		v := a.Value.String()
		if bearerPattern.MatchString(v) {
			return slog.String(a.Key, bearerPattern.ReplaceAllString(v, redactedValue))
		}
	}
	return a
}
