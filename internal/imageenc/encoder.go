package imageenc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"sdportal/internal/logging"
)

const dataURLPrefix = "data:"

var (
	// ErrNoAssets is returned when a local asset is requested but no asset
	// filesystem was configured.
	ErrNoAssets = errors.New("imageenc: no asset filesystem configured")
	// ErrInvalidDataURL marks input that is not a base64 data URL.
	ErrInvalidDataURL = errors.New("imageenc: invalid data url")
)

// Encoder fetches image bytes and wraps them in a data URL.
type Encoder struct {
	httpClient *http.Client
	assets     fs.FS
	logger     *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithHTTPClient overrides the client used for remote fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Encoder) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithAssets sets the filesystem local asset paths resolve against.
func WithAssets(assets fs.FS) Option {
	return func(e *Encoder) {
		e.assets = assets
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New constructs an Encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "imageenc")
	return e
}

// Encode loads the resource at url and returns it as data:<mime>;base64,<payload>.
func (e *Encoder) Encode(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("imageenc: empty url")
	}
	var (
		data     []byte
		mimeType string
		err      error
	)
	if isRemote(url) {
		data, mimeType, err = e.fetch(ctx, url)
	} else {
		data, mimeType, err = e.readAsset(url)
	}
	if err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	e.logger.Debug("image encoded",
		logging.String("source", url),
		logging.String("mime", mimeType),
		logging.Int("bytes", len(data)),
	)
	return EncodeBytes(mimeType, data), nil
}

// EncodeBytes wraps raw bytes in a data URL.
func EncodeBytes(mimeType string, data []byte) string {
	return dataURLPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its media type and payload.
func DecodeDataURL(value string) (string, []byte, error) {
	if !strings.HasPrefix(value, dataURLPrefix) {
		return "", nil, ErrInvalidDataURL
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(value, dataURLPrefix), ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return mediaType, data, nil
}

// Extension returns a file extension (without dot) for an image media type.
func Extension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	default:
		return "bin"
	}
}

func isRemote(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (e *Encoder) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("imageenc: build request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("imageenc: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("imageenc: fetch %s: http %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("imageenc: read %s: %w", url, err)
	}
	return data, mediaTypeOf(resp.Header.Get("Content-Type")), nil
}

func (e *Encoder) readAsset(name string) ([]byte, string, error) {
	if e.assets == nil {
		return nil, "", ErrNoAssets
	}
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	data, err := fs.ReadFile(e.assets, clean)
	if err != nil {
		return nil, "", fmt.Errorf("imageenc: read asset %s: %w", clean, err)
	}
	return data, mime.TypeByExtension(path.Ext(clean)), nil
}

// mediaTypeOf strips parameters and ignores the generic octet-stream type so
// the caller falls back to sniffing.
func mediaTypeOf(header string) string {
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || mediaType == "application/octet-stream" {
		return ""
	}
	return mediaType
}
