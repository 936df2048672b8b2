package staticpress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/staticpress/content"
)

const (
	jpegQuality  = 82
	maxMediaSize = 20 << 20 // 20MB
)

// ErrMediaNotFound is returned when the content API has no file by that name.
var ErrMediaNotFound = errors.New("media not found")

// MediaProxy serves /media/<name> by fetching <api>/api/media/file/<name>,
// downscaling raster images wider than maxWidth and keeping the result in
// a local directory.
type MediaProxy struct {
	apiURL   string
	dir      string
	maxWidth int
	client   *http.Client
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewMediaProxy returns a MediaProxy caching files under dir.
func NewMediaProxy(apiURL, dir string, maxWidth int, client *http.Client, logger *slog.Logger) *MediaProxy {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaProxy{
		apiURL:   apiURL,
		dir:      dir,
		maxWidth: maxWidth,
		client:   client,
		logger:   logger,
		inflight: make(map[string]*sync.Mutex),
	}
}

// Path returns the local file for name, fetching and processing it on first use.
func (m *MediaProxy) Path(ctx context.Context, name string) (string, error) {
	if !validMediaName(name) {
		return "", ErrMediaNotFound
	}
	local := filepath.Join(m.dir, name)
	if fileExists(local) {
		return local, nil
	}

	lock := m.lock(name)
	lock.Lock()
	defer lock.Unlock()
	if fileExists(local) {
		return local, nil
	}

	data, contentType, err := m.download(ctx, name)
	if err != nil {
		return "", err
	}
	data = m.process(data, contentType, name)

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	tmp := local + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write media: %w", err)
	}
	if err := os.Rename(tmp, local); err != nil {
		return "", fmt.Errorf("write media: %w", err)
	}
	return local, nil
}

func (m *MediaProxy) lock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.inflight[name]
	if !ok {
		l = &sync.Mutex{}
		m.inflight[name] = l
	}
	return l
}

func (m *MediaProxy) download(ctx context.Context, name string) ([]byte, string, error) {
	if m.apiURL == "" {
		return nil, "", ErrMediaNotFound
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, content.APIMediaURL(m.apiURL, name), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch media %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrMediaNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch media %s: status %d", name, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read media %s: %w", name, err)
	}
	if len(data) > maxMediaSize {
		return nil, "", fmt.Errorf("media %s exceeds %d bytes", name, maxMediaSize)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// process downscales JPEG and PNG images wider than maxWidth, keeping their
// format. Anything else, or anything that fails to decode, is kept as is.
func (m *MediaProxy) process(data []byte, contentType, name string) []byte {
	if m.maxWidth <= 0 {
		return data
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if !strings.HasPrefix(contentType, "image/jpeg") && !strings.HasPrefix(contentType, "image/png") {
		return data
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		m.logger.Warn("Media is not a decodable image", slog.String("file", name), logErr(err))
		return data
	}
	out, err := resize(img, format, m.maxWidth)
	if err != nil {
		m.logger.Warn("Media resize failed", slog.String("file", name), logErr(err))
		return data
	}
	if out == nil {
		return data
	}
	return out
}

// resize scales img down to maxWidth and re-encodes it in format. It returns
// nil when the image is already narrow enough.
func resize(img image.Image, format string, maxWidth int) ([]byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth {
		return nil, nil
	}
	newH := max(h*maxWidth/w, 1)
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func validMediaName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}

func (a *App) handleMedia(c echo.Context) error {
	name, err := url.PathUnescape(c.Param("filename"))
	if err != nil {
		return echo.ErrNotFound
	}
	local, err := a.media.Path(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			return echo.ErrNotFound
		}
		a.Logger.Error("Media proxy failed", slog.String("file", name), logErr(err))
		return echo.NewHTTPError(http.StatusBadGateway, "media unavailable")
	}
	return c.File(local)
}
