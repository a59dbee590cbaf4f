// Package storage persists uploaded images on the local filesystem and hands
// back the public URL they are served from.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // registers the webp decoder for thumbnails
)

// Class selects the size limit and directory for an upload
type Class string

const (
	ClassAvatar   Class = "avatar"
	ClassOffering Class = "offering"
	ClassMenu     Class = "menu"
)

type classSpec struct {
	dir      string
	maxBytes int64
}

var classes = map[Class]classSpec{
	ClassAvatar:   {dir: "avatars", maxBytes: 2 << 20},
	ClassOffering: {dir: "offerings", maxBytes: 5 << 20},
	ClassMenu:     {dir: "offerings", maxBytes: 5 << 20},
}

var (
	allowedExtensions = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
	}

	extensionForMIME = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

var (
	ErrTooLarge        = errors.New("file size exceeds limit")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrUnknownClass    = errors.New("unknown upload class")
	ErrInvalidURL      = errors.New("not a stored file url")
)

// ThumbWidth is the width of generated thumbnails, height keeps the aspect ratio
const ThumbWidth = 200

// LocalStore writes uploads below Root and exposes them below PublicPrefix
type LocalStore struct {
	root         string
	publicPrefix string
}

// NewLocalStore creates a store rooted at dir, serving files at publicPrefix
func NewLocalStore(dir, publicPrefix string) *LocalStore {
	return &LocalStore{
		root:         dir,
		publicPrefix: strings.TrimSuffix(publicPrefix, "/"),
	}
}

// Store validates and saves an image, returning its public URL
func (s *LocalStore) Store(ctx context.Context, class Class, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	spec, ok := classes[class]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" {
		if _, ok := allowedExtensions[ext]; !ok {
			return "", fmt.Errorf("%w: extension %s", ErrUnsupportedType, ext)
		}
	}

	// Read one byte past the limit so oversize files are detected without
	// buffering them whole.
	buf, err := io.ReadAll(io.LimitReader(r, spec.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(buf)) > spec.maxBytes {
		return "", ErrTooLarge
	}
	if len(buf) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}

	sniff := buf
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	mimeType := http.DetectContentType(sniff)
	canonical, ok := extensionForMIME[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if ext == "" {
		ext = canonical
	} else if allowedExtensions[ext] != mimeType {
		return "", fmt.Errorf("%w: %s content with %s extension", ErrUnsupportedType, mimeType, ext)
	}

	dir := filepath.Join(s.root, spec.dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	name := uuid.New().String() + ext
	fullPath := filepath.Join(dir, name)
	if err := os.WriteFile(fullPath, buf, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", fullPath, err)
	}

	if err := s.writeThumbnail(buf, spec.dir, name); err != nil {
		slog.Warn("thumbnail generation failed", slog.String("file", fullPath), slog.String("error", err.Error()))
	}

	return s.publicPrefix + "/" + spec.dir + "/" + name, nil
}

// Delete removes a stored file and its thumbnail. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, name, err := s.parseURL(url)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	thumb := filepath.Join(s.root, dir, "thumbs", thumbName(name))
	if err := os.Remove(thumb); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove thumbnail %s: %w", thumb, err)
	}
	return nil
}

// parseURL maps a public URL back to its directory and file name, refusing
// anything that would escape the store root.
func (s *LocalStore) parseURL(url string) (string, string, error) {
	rest, ok := strings.CutPrefix(url, s.publicPrefix+"/")
	if !ok {
		return "", "", ErrInvalidURL
	}
	cleaned := path.Clean(rest)
	if cleaned != rest || strings.Contains(cleaned, "..") {
		return "", "", ErrInvalidURL
	}
	dir, name, found := strings.Cut(cleaned, "/")
	if !found || name == "" || strings.Contains(name, "/") {
		return "", "", ErrInvalidURL
	}
	for _, spec := range classes {
		if spec.dir == dir {
			return dir, name, nil
		}
	}
	return "", "", ErrInvalidURL
}

func (s *LocalStore) writeThumbnail(data []byte, dir, name string) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	resized := imaging.Resize(img, ThumbWidth, 0, imaging.Lanczos)

	thumbDir := filepath.Join(s.root, dir, "thumbs")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", thumbDir, err)
	}

	out, err := os.Create(filepath.Join(thumbDir, thumbName(name)))
	if err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	defer out.Close()

	return imaging.Encode(out, resized, imaging.JPEG, imaging.JPEGQuality(85))
}

func thumbName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}
