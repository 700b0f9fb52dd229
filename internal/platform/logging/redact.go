package logging

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/m-mizutani/masq"
)

const redacted = "[REDACTED]"

// sensitiveHeaders lists lowercase HTTP header names that carry credentials.
var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"cookie":        true,
}

// personalFields are record keys whose values identify a person. User names
// stay visible; they are needed to follow assignment changes in the logs.
var personalFields = []string{"email", "user_email"}

var (
	credentialFields   = []string{"password", "secret", "token"}
	credentialPrefixes = []string{"secret_", "api_key"}
)

// valuePatterns catch credentials that reach a record under an unexpected key.
var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
	// JWTs; the segment minimum keeps version strings like 1.2.3 intact.
	regexp.MustCompile(`[a-zA-Z0-9\-_]{10,}\.[a-zA-Z0-9\-_]{10,}\.[a-zA-Z0-9\-_]{10,}`),
	regexp.MustCompile(`(?i)(api[_\-]?key|apikey)\s*[:=]\s*\S+`),
}

// newRedactAttr returns the ReplaceAttr hook that masks sensitive fields.
func newRedactAttr() func([]string, slog.Attr) slog.Attr {
	var opts []masq.Option
	for name := range sensitiveHeaders {
		opts = append(opts, masq.WithFieldName(name))
	}
	for _, name := range credentialFields {
		opts = append(opts, masq.WithFieldName(name))
	}
	for _, name := range personalFields {
		opts = append(opts, masq.WithFieldName(name))
	}
	for _, prefix := range credentialPrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}
	for _, re := range valuePatterns {
		opts = append(opts, masq.WithRegex(re))
	}
	return masq.New(opts...)
}

// HeaderAttrs turns HTTP headers into attributes for debug logging, masking
// credential headers and joining repeated values with commas.
func HeaderAttrs(h http.Header) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(h))
	for name, vals := range h {
		v := strings.Join(vals, ",")
		if sensitiveHeaders[strings.ToLower(name)] {
			v = redacted
		}
		attrs = append(attrs, slog.String(name, v))
	}
	return attrs
}
