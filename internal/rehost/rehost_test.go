package rehost

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

func newTestRehoster(t *testing.T) (*Rehoster, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return New(store, &http.Client{}, "http://localhost:8080/static", zerolog.Nop()), dir
}

func TestRehostDownloadsRemoteAsset(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	r, dir := newTestRehoster(t)
	got := r.Rehost(context.Background(), srv.URL+"/asset", domain.ModalityImage)

	if got == srv.URL+"/asset" {
		t.Fatalf("reference was not rewritten: %q", got)
	}
	if !strings.HasPrefix(got, "http://localhost:8080/static/images/") {
		t.Fatalf("local ref = %q, want static/images prefix", got)
	}
	if !strings.HasSuffix(got, ".png") {
		t.Fatalf("local ref = %q, want .png extension from content type", got)
	}

	key := strings.TrimPrefix(got, "http://localhost:8080/static/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("stored bytes differ from served bytes")
	}
}

func TestRehostKeepsOriginalOnUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	r, _ := newTestRehoster(t)
	original := srv.URL + "/gone.png"
	if got := r.Rehost(context.Background(), original, domain.ModalityImage); got != original {
		t.Fatalf("ref = %q, want original %q", got, original)
	}
}

func TestRehostKeepsOriginalWhenAssetExceedsSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	r, dir := newTestRehoster(t)
	r.maxBytes = 16
	original := srv.URL + "/huge.png"
	if got := r.Rehost(context.Background(), original, domain.ModalityImage); got != original {
		t.Fatalf("ref = %q, want original %q", got, original)
	}

	// Nothing truncated may have been written either.
	entries, err := os.ReadDir(filepath.Join(dir, "images"))
	if err == nil && len(entries) > 0 {
		t.Fatalf("found %d stored files, want none", len(entries))
	}
}

func TestRehostStoresAssetExactlyAtSizeCap(t *testing.T) {
	payload := make([]byte, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	r, _ := newTestRehoster(t)
	r.maxBytes = 16
	original := srv.URL + "/exact.png"
	if got := r.Rehost(context.Background(), original, domain.ModalityImage); got == original {
		t.Fatalf("reference was not rewritten: %q", got)
	}
}

func TestRehostKeepsOriginalOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer srv.Close()

	r, _ := newTestRehoster(t)
	original := srv.URL + "/expired.png"
	if got := r.Rehost(context.Background(), original, domain.ModalityImage); got != original {
		t.Fatalf("ref = %q, want original %q", got, original)
	}
}

func TestRehostKeepsOriginalOnRelativeRef(t *testing.T) {
	r, _ := newTestRehoster(t)
	if got := r.Rehost(context.Background(), "not-a-url", domain.ModalityImage); got != "not-a-url" {
		t.Fatalf("ref = %q, want original", got)
	}
}

func TestRehostInlineDataURI(t *testing.T) {
	payload := []byte("fake image bytes")
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	r, dir := newTestRehoster(t)
	got := r.Rehost(context.Background(), ref, domain.ModalityImage)

	if strings.HasPrefix(got, "data:") {
		t.Fatalf("data uri was not rewritten")
	}
	if !strings.HasSuffix(got, ".png") {
		t.Fatalf("local ref = %q, want .png from data uri mime", got)
	}
	key := strings.TrimPrefix(got, "http://localhost:8080/static/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("stored bytes differ from decoded payload")
	}
}

func TestRehostMalformedDataURIKeepsOriginal(t *testing.T) {
	r, _ := newTestRehoster(t)
	cases := []string{
		"data:image/png;base64",
		"data:image/png,plain-not-base64-tagged",
		"data:image/png;base64,%%%%",
	}
	for _, ref := range cases {
		if got := r.Rehost(context.Background(), ref, domain.ModalityImage); got != ref {
			t.Fatalf("ref %q was rewritten to %q", ref, got)
		}
	}
}

func TestRehostVideoDefaultsExtensionAndDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("video bytes"))
	}))
	defer srv.Close()

	r, _ := newTestRehoster(t)
	got := r.Rehost(context.Background(), srv.URL+"/clip", domain.ModalityVideo)
	if !strings.Contains(got, "/videos/") {
		t.Fatalf("local ref = %q, want videos directory", got)
	}
	if !strings.HasSuffix(got, ".mp4") {
		t.Fatalf("local ref = %q, want default .mp4 extension", got)
	}
}

func TestRehostInfersExtensionFromURLPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("webm bytes"))
	}))
	defer srv.Close()

	r, _ := newTestRehoster(t)
	got := r.Rehost(context.Background(), srv.URL+"/clips/output.webm?sig=abc", domain.ModalityVideo)
	if !strings.HasSuffix(got, ".webm") {
		t.Fatalf("local ref = %q, want .webm from url path", got)
	}
}

func TestRehostEmptyRef(t *testing.T) {
	r, _ := newTestRehoster(t)
	if got := r.Rehost(context.Background(), "   ", domain.ModalityImage); got != "" {
		t.Fatalf("ref = %q, want empty", got)
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	for _, key := range []string{"../outside.png", "images/../../outside.png", "  ", "."} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}

func TestFileStoreNormalizesKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	key, err := store.Write(context.Background(), "/images/./a.png", []byte("x"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "images/a.png" {
		t.Fatalf("key = %q, want images/a.png", key)
	}
	if _, err := os.Stat(filepath.Join(dir, "images", "a.png")); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}
