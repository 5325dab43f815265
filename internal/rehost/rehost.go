// Package rehost turns ephemeral provider-hosted media into durable local
// artifacts. Its one contract the rest of the system relies on: Rehost never
// fails the caller. When a download or decode goes wrong the original remote
// reference is returned unchanged, so a task can still complete with a
// possibly short-lived link instead of being lost.
package rehost

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

// FetchTimeout bounds a single remote asset download. Assets can be large, so
// this is the long timeout class.
const FetchTimeout = 2 * time.Minute

const maxAssetBytes = 512 << 20

// Rehoster downloads remote media and writes durable local copies.
type Rehoster struct {
	store    *FileStore
	client   *http.Client
	baseURL  string
	logger   zerolog.Logger
	maxBytes int64
}

// New constructs a Rehoster serving files under baseURL. A nil client falls
// back to a default; the fetch deadline comes from the per-call context.
func New(store *FileStore, client *http.Client, baseURL string, logger zerolog.Logger) *Rehoster {
	if client == nil {
		client = http.DefaultClient
	}
	return &Rehoster{
		store:    store,
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
		maxBytes: maxAssetBytes,
	}
}

// Rehost stores a local copy of the referenced media and returns its stable
// local reference. The reference may be a remote URL or an inline data URI.
// On any failure the original reference is returned unchanged; Rehost never
// propagates an error.
func (r *Rehoster) Rehost(ctx context.Context, ref string, modality domain.Modality) string {
	ref = strings.TrimSpace(ref)
	if r == nil || r.store == nil || ref == "" {
		return ref
	}

	var (
		data []byte
		ext  string
		err  error
	)
	if strings.HasPrefix(ref, "data:") {
		data, ext, err = decodeInline(ref)
	} else {
		data, ext, err = r.fetch(ctx, ref, modality)
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("ref", truncateRef(ref)).Msg("rehost failed, keeping original reference")
		return ref
	}
	if ext == "" {
		ext = defaultExtension(modality)
	}

	key := fmt.Sprintf("%s/%s%s", directoryFor(modality), uuid.NewString(), ext)
	savedKey, err := r.store.Write(ctx, key, data)
	if err != nil {
		r.logger.Warn().Err(err).Str("ref", truncateRef(ref)).Msg("rehost write failed, keeping original reference")
		return ref
	}
	return r.baseURL + "/" + savedKey
}

func (r *Rehoster) fetch(ctx context.Context, remoteURL string, modality domain.Modality) ([]byte, string, error) {
	parsed, err := url.Parse(remoteURL)
	if err != nil || !parsed.IsAbs() {
		return nil, "", fmt.Errorf("not an absolute url: %q", remoteURL)
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download status %d", resp.StatusCode)
	}
	// Read one byte past the cap so an over-limit asset is detected rather
	// than stored truncated.
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, "", fmt.Errorf("asset exceeds %d bytes", r.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty body")
	}

	ext := extensionForContentType(resp.Header.Get("Content-Type"))
	if ext == "" {
		ext = extensionFromURL(parsed)
	}
	return data, ext, nil
}

// decodeInline parses a data URI of the form data:<mime>;base64,<payload>.
func decodeInline(ref string) ([]byte, string, error) {
	rest := strings.TrimPrefix(ref, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data uri")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("unsupported data uri encoding")
	}
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 payload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty payload")
	}
	return data, extensionForContentType(mime), nil
}

func directoryFor(modality domain.Modality) string {
	if modality == domain.ModalityVideo {
		return "videos"
	}
	return "images"
}

func defaultExtension(modality domain.Modality) string {
	if modality == domain.ModalityVideo {
		return ".mp4"
	}
	return ".png"
}

func extensionForContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if semicolon := strings.Index(contentType, ";"); semicolon >= 0 {
		contentType = strings.TrimSpace(contentType[:semicolon])
	}
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	default:
		return ""
	}
}

var knownExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {},
	".mp4": {}, ".webm": {}, ".mov": {},
}

func extensionFromURL(parsed *url.URL) string {
	ext := strings.ToLower(path.Ext(parsed.Path))
	if _, ok := knownExtensions[ext]; ok {
		return ext
	}
	return ""
}

func truncateRef(ref string) string {
	if len(ref) > 120 {
		return ref[:120] + "..."
	}
	return ref
}
