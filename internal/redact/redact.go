// Package redact removes credentials from strings before they reach logs.
// Database and broker URLs carry passwords in their userinfo section; every
// log statement that mentions such a URL must pass it through this package.
package redact

import (
	"net/url"
	"strings"
)

// URL returns the given connection URL with any userinfo password replaced
// by "xxxxx". Unparseable inputs are fully masked rather than leaked.
func URL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}

	return u.String()
}

// Error returns the error's message with credential-bearing URL fragments
// masked. Errors from database drivers and AMQP clients frequently embed the
// dial string verbatim.
func Error(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, scheme := range []string{"postgres://", "postgresql://", "amqp://", "amqps://"} {
		var out strings.Builder
		rest := msg
		for {
			i := strings.Index(rest, scheme)
			if i < 0 {
				out.WriteString(rest)
				break
			}
			out.WriteString(rest[:i])
			end := i
			for end < len(rest) && !isURLTerminator(rest[end]) {
				end++
			}
			out.WriteString(URL(rest[i:end]))
			rest = rest[end:]
		}
		msg = out.String()
	}
	return msg
}

func isURLTerminator(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '"', '\'', ')', ']', ',', ';':
		return true
	default:
		return false
	}
}
