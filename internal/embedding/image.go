package embedding

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var imageHTTPClient = &http.Client{Timeout: 30 * time.Second}

func loadPath(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("embedding: reading image path: %w", err)
	}
	return data, nil
}

func loadURL(url string) ([]byte, error) {
	resp, err := imageHTTPClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching image url: %v", ErrEmbedderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image url returned status %d", ErrEmbedderUnavailable, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func loadImageBytes(image Image) ([]byte, error) {
	switch {
	case len(image.Bytes) > 0:
		return image.Bytes, nil
	case image.Path != "":
		return loadPath(image.Path)
	case image.URL != "":
		return loadURL(image.URL)
	default:
		return nil, fmt.Errorf("%w: image has no bytes, path, or url", ErrInvalidConfig)
	}
}

func toBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
