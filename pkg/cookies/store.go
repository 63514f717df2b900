// Package cookies manages the shared extraction credential file: a
// browser-exported Netscape cookies.txt that unblocks bot-detection and
// restricted content.
package cookies

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"yt-m3u8-go/pkg/interfaces"
	"yt-m3u8-go/pkg/logging"
)

// ErrInvalidCookieFile is returned when an uploaded payload does not look
// like a browser-exported Netscape cookie file.
var ErrInvalidCookieFile = errors.New("not a valid Netscape cookies.txt export")

const fileName = "cookies.txt"

// netscapeMarker is the header line browser exporters write.
const netscapeMarker = "# Netscape HTTP Cookie File"

// Store holds the credential file location. The file is read-only shared
// state for in-flight extractions; replacement is atomic (write-then-
// rename) so a concurrent reader never observes a half-written file.
type Store struct {
	dir      string
	explicit string // optional COOKIES_FILE override, read-only
	log      *logging.Logger
}

// New creates a store rooted at dir. explicit optionally names a
// pre-provisioned cookie file outside the store's control.
func New(dir, explicit string, log *logging.Logger) *Store {
	return &Store{
		dir:      dir,
		explicit: explicit,
		log:      log.WithComponent("cookies"),
	}
}

// Path returns the credential file currently in effect, or "" when none
// is loaded. Uploaded cookies win over a pre-provisioned file.
func (s *Store) Path() string {
	candidates := []string{filepath.Join(s.dir, fileName), s.explicit, "./" + fileName}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if st, err := os.Stat(p); err == nil && st.Size() > 0 {
			return p
		}
	}
	return ""
}

// Save validates and atomically stores an uploaded cookie file.
func (s *Store) Save(content []byte) error {
	if len(content) == 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidCookieFile)
	}
	text := string(content)
	if !strings.Contains(text, netscapeMarker) && !strings.Contains(strings.ToLower(text), "youtube") {
		return ErrInvalidCookieFile
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cookie dir: %w", err)
	}

	dest := filepath.Join(s.dir, fileName)
	if err := renameio.WriteFile(dest, content, 0o600); err != nil {
		return fmt.Errorf("failed to store cookies: %w", err)
	}

	s.log.Info("cookies stored", "path", dest, "entries", CountEntries(text))
	return nil
}

// Delete removes the stored credential file. Deleting when nothing is
// loaded is not an error.
func (s *Store) Delete() error {
	path := s.Path()
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete cookies: %w", err)
	}
	s.log.Info("cookies deleted", "path", path)
	return nil
}

// Status describes the currently loaded credential file.
type Status struct {
	Loaded     bool  `json:"cookies_loaded"`
	Entries    int   `json:"entries,omitempty"`
	SizeBytes  int64 `json:"size_bytes,omitempty"`
	HasYouTube bool  `json:"has_youtube_cookies,omitempty"`
}

// Status inspects the credential file currently in effect.
func (s *Store) Status() Status {
	path := s.Path()
	if path == "" {
		return Status{}
	}

	st, err := os.Stat(path)
	if err != nil {
		return Status{}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Status{Loaded: true, SizeBytes: st.Size()}
	}

	text := string(content)
	return Status{
		Loaded:     true,
		Entries:    CountEntries(text),
		SizeBytes:  st.Size(),
		HasYouTube: strings.Contains(text, "youtube.com"),
	}
}

// CountEntries counts cookie lines: non-blank lines that are not comments.
func CountEntries(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			n++
		}
	}
	return n
}

var _ interfaces.CookieStore = (*Store)(nil)
