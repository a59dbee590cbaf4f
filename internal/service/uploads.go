package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/forgo/fete/api/internal/events"
	"github.com/forgo/fete/api/internal/storage"
)

// Upload is an image received with a request
type Upload struct {
	Filename string
	Content  io.Reader
}

// BlobStore persists uploaded images
type BlobStore interface {
	Store(ctx context.Context, class storage.Class, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// storeImage stores one upload and maps storage rejections to client errors
func storeImage(ctx context.Context, blobs BlobStore, class storage.Class, upload *Upload) (string, error) {
	url, err := blobs.Store(ctx, class, upload.Filename, upload.Content)
	switch {
	case err == nil:
		return url, nil
	case errors.Is(err, storage.ErrTooLarge):
		return "", ErrFileTooLarge
	case errors.Is(err, storage.ErrUnsupportedType):
		return "", ErrUnsupportedImage
	default:
		return "", err
	}
}

// storeImages stores uploads in order. On failure the images already stored
// are removed again.
func storeImages(ctx context.Context, blobs BlobStore, class storage.Class, uploads []*Upload) ([]string, error) {
	urls := make([]string, 0, len(uploads))
	for _, u := range uploads {
		url, err := storeImage(ctx, blobs, class, u)
		if err != nil {
			discardImages(ctx, blobs, urls...)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// discardImages removes stored images, logging failures. Cleanup is best-effort.
func discardImages(ctx context.Context, blobs BlobStore, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := blobs.Delete(ctx, url); err != nil {
			slog.Warn("failed to remove stored image",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
		}
	}
}

// publish sends a domain event. Failures are logged and never fail the caller.
func publish(ctx context.Context, p events.Publisher, event events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish domain event",
			slog.String("type", event.Type),
			slog.String("key", event.Key),
			slog.String("error", err.Error()),
		)
	}
}

// ParsePrice accepts a JSON number or a numeric string. The result is finite
// and non-negative.
func ParsePrice(v interface{}) (float64, error) {
	var price float64
	switch p := v.(type) {
	case nil:
		return 0, ErrPriceRequired
	case float64:
		price = p
	case float32:
		price = float64(p)
	case int:
		price = float64(p)
	case int64:
		price = float64(p)
	case json.Number:
		f, err := p.Float64()
		if err != nil {
			return 0, ErrInvalidPrice
		}
		price = f
	case string:
		s := strings.TrimSpace(p)
		if s == "" {
			return 0, ErrPriceRequired
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, ErrInvalidPrice
		}
		price = f
	default:
		return 0, ErrInvalidPrice
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, ErrInvalidPrice
	}
	return price, nil
}

// trimmedPtr trims an optional string, keeping nil as nil
func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
