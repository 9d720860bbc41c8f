package contextextract

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var extToMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

const defaultImageMime = "image/jpeg"

func mimeFromExt(path string) string {
	ext := strings.ToLower(path[strings.LastIndexByte(path, '.')+1:])
	if ext == path {
		return defaultImageMime
	}
	if m, ok := extToMime["."+ext]; ok {
		return m
	}
	return defaultImageMime
}

// resolvedImage is a base64 data URI, or a pass-through HTTPS URL.
type resolvedImage struct {
	DataURI string
	URL     string
}

func resolveImage(img Image) (resolvedImage, error) {
	switch {
	case img.URL != "":
		return resolvedImage{URL: img.URL}, nil

	case img.Path != "":
		data, err := os.ReadFile(img.Path)
		if err != nil {
			return resolvedImage{}, fmt.Errorf("contextextract: reading image path: %w", err)
		}
		mime := mimeFromExt(img.Path)
		return resolvedImage{DataURI: dataURI(mime, data)}, nil

	case len(img.Bytes) > 0:
		mime := img.MimeHint
		if mime == "" {
			mime = defaultImageMime
		}
		return resolvedImage{DataURI: dataURI(mime, img.Bytes)}, nil

	default:
		return resolvedImage{}, fmt.Errorf("contextextract: %w: image has no bytes, path, or url", ErrInvalidConfig)
	}
}

func dataURI(mime string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// fetchURL is used when a caller wants the extractor to resolve a
// remote URL to bytes itself rather than passing the URL straight
// through to the vision model (some providers prefer an inline image).
func fetchURL(url string) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("contextextract: fetching image url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contextextract: image url returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
