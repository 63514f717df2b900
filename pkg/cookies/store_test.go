package cookies

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"yt-m3u8-go/pkg/logging"
)

const sampleCookies = `# Netscape HTTP Cookie File
# This file is generated by a browser extension.

.youtube.com	TRUE	/	TRUE	1999999999	SID	abc123
.youtube.com	TRUE	/	TRUE	1999999999	HSID	def456
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), "", logging.New("error", false, nil))
}

func TestSaveAndPath(t *testing.T) {
	s := newTestStore(t)

	if got := s.Path(); got != "" {
		t.Fatalf("Path before save = %q, want empty", got)
	}

	if err := s.Save([]byte(sampleCookies)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := s.Path()
	if path == "" {
		t.Fatal("Path after save is empty")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(content) != sampleCookies {
		t.Error("stored content differs from upload")
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"random text", "this is not a cookie file at all"},
		{"json payload", `{"cookies": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Save([]byte(tt.payload))
			if !errors.Is(err, ErrInvalidCookieFile) {
				t.Errorf("Save(%q) err = %v, want ErrInvalidCookieFile", tt.name, err)
			}
		})
	}

	// marker-less but clearly a youtube export is accepted
	if err := s.Save([]byte(".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tx")); err != nil {
		t.Errorf("youtube line without marker rejected: %v", err)
	}
}

func TestStatus(t *testing.T) {
	s := newTestStore(t)

	if st := s.Status(); st.Loaded {
		t.Error("Status.Loaded true before save")
	}

	if err := s.Save([]byte(sampleCookies)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	st := s.Status()
	if !st.Loaded {
		t.Error("Status.Loaded false after save")
	}
	if st.Entries != 2 {
		t.Errorf("Entries = %d, want 2", st.Entries)
	}
	if !st.HasYouTube {
		t.Error("HasYouTube false for youtube cookies")
	}
	if st.SizeBytes != int64(len(sampleCookies)) {
		t.Errorf("SizeBytes = %d, want %d", st.SizeBytes, len(sampleCookies))
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	if err := s.Delete(); err != nil {
		t.Errorf("Delete with nothing loaded: %v", err)
	}

	if err := s.Save([]byte(sampleCookies)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := s.Path(); got != "" {
		t.Errorf("Path after delete = %q, want empty", got)
	}
}

func TestExplicitFileFallback(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "provisioned.txt")
	if err := os.WriteFile(explicit, []byte(sampleCookies), 0o600); err != nil {
		t.Fatal(err)
	}

	s := New(filepath.Join(dir, "store"), explicit, logging.New("error", false, nil))

	if got := s.Path(); got != explicit {
		t.Errorf("Path = %q, want provisioned %q", got, explicit)
	}

	// an uploaded file takes precedence over the provisioned one
	if err := s.Save([]byte(sampleCookies)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := s.Path(); got == explicit {
		t.Error("uploaded cookies should win over provisioned file")
	}
}
