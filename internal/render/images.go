package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"strings"
	"sync"

	"spinwheel/internal/models"

	"github.com/google/logger"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

var errBadDataURL = errors.New("malformed data url")

// ImageCache holds the decoded icon of every prize, keyed by prize id.
// A nil entry marks an image that failed to load.
type ImageCache struct {
	mu     sync.RWMutex
	assets fs.FS
	images map[int]image.Image
}

// NewImageCache creates a cache that resolves asset paths against assets.
func NewImageCache(assets fs.FS) *ImageCache {
	return &ImageCache{assets: assets, images: make(map[int]image.Image)}
}

// Load decodes all prize images concurrently and swaps them in once every
// load has finished. A failed image is logged and left out; Load itself only
// fails when ctx is cancelled.
func (c *ImageCache) Load(ctx context.Context, prizes []models.Prize) error {
	loaded := make([]image.Image, len(prizes))

	var g errgroup.Group
	for i, p := range prizes {
		g.Go(func() error {
			img, err := c.decode(p.Image)
			if err != nil {
				logger.Warningf("Could not load image for %s: %v", p.Name, err)
				return nil
			}
			loaded[i] = img
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	images := make(map[int]image.Image, len(prizes))
	for i, p := range prizes {
		images[p.ID] = loaded[i]
	}
	c.mu.Lock()
	c.images = images
	c.mu.Unlock()
	return nil
}

// Get returns the icon for prize id, or nil.
func (c *ImageCache) Get(id int) image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.images[id]
}

func (c *ImageCache) decode(src string) (image.Image, error) {
	var raw []byte
	switch {
	case src == "":
		return nil, fs.ErrNotExist
	case strings.HasPrefix(src, "data:"):
		header, payload, ok := strings.Cut(src, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, errBadDataURL
		}
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		if c.assets == nil {
			return nil, fs.ErrNotExist
		}
		b, err := fs.ReadFile(c.assets, strings.TrimPrefix(src, "/"))
		if err != nil {
			return nil, err
		}
		raw = b
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	return img, err
}
