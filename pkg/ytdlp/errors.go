package ytdlp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExtractionBlocked marks extraction failures caused by origin-side
// gating (bot detection, age restriction, privacy, memberships) rather
// than transport problems. The wrapped message is already user-actionable.
var ErrExtractionBlocked = errors.New("extraction blocked")

// blockedPatterns maps known upstream error-message substrings to
// user-actionable messages. Matching is case-insensitive and ordered;
// the first hit wins.
var blockedPatterns = []struct {
	substr  string
	message string
}{
	{"sign in to confirm", "bot detection triggered: upload cookies via POST /api/cookies"},
	{"bot", "bot detection triggered: upload cookies via POST /api/cookies"},
	{"age", "age-restricted: upload cookies via POST /api/cookies"},
	{"private", "private video: needs cookies from an account with access"},
	{"members", "members-only: needs cookies from a member account"},
}

// classifyError turns a raw yt-dlp failure into an error the boundary
// layer can map. Known gating phrases become ErrExtractionBlocked with a
// friendly message; anything else passes through its raw description.
func classifyError(stderr string) error {
	lower := strings.ToLower(stderr)
	for _, p := range blockedPatterns {
		if strings.Contains(lower, p.substr) {
			return fmt.Errorf("%w: %s", ErrExtractionBlocked, p.message)
		}
	}
	if strings.Contains(lower, "not available") {
		return fmt.Errorf("format not available: %s", firstLine(stderr))
	}
	return errors.New(firstLine(stderr))
}

// firstLine keeps upstream errors to a single line; yt-dlp stderr can run
// to hundreds of lines of traceback.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	// yt-dlp prefixes the actionable message with "ERROR:", later lines
	// are warnings and tracebacks.
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	if idx := strings.IndexByte(s, '\n'); idx > 0 {
		return s[:idx]
	}
	return s
}
