package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var ErrBadImage = errors.New("invalid image")

var allowedExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// maxParallelUploads bounds concurrent uploads per request.
const maxParallelUploads = 3

type image struct {
	ext         string
	contentType string
	data        []byte
}

// readImage checks extension, size and magic bytes of one uploaded file.
func readImage(fh *multipart.FileHeader, maxBytes int64) (*image, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	declared, ok := allowedExts[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s must be JPG, PNG, WEBP, HEIC or HEIF", ErrBadImage, fh.Filename)
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d MB", ErrBadImage, fh.Filename, maxBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s", ErrBadImage, fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s", ErrBadImage, fh.Filename)
	}

	detected := http.DetectContentType(data)
	switch {
	case detected == "image/jpeg" || detected == "image/png" || detected == "image/webp":
		declared = detected
	case ext == ".heic" || ext == ".heif":
		// no sniffing support for HEIF containers; trust the extension
	default:
		return nil, fmt.Errorf("%w: %s content is %s", ErrBadImage, fh.Filename, detected)
	}
	return &image{ext: ext, contentType: declared, data: data}, nil
}

// SaveImages validates every file first and then uploads them in parallel
// under random names, returning the stored names in input order.
func SaveImages(ctx context.Context, store ProofStore, prefix string, files []*multipart.FileHeader, maxBytes int64) ([]string, error) {
	if store == nil {
		return nil, errors.New("proof storage is not configured")
	}
	images := make([]*image, len(files))
	for i, fh := range files {
		img, err := readImage(fh, maxBytes)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}

	names := make([]string, len(images))
	sem := semaphore.NewWeighted(maxParallelUploads)
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			name := prefix + "_" + uuid.NewString() + img.ext
			stored, err := store.Save(gctx, name, bytes.NewReader(img.data), int64(len(img.data)), img.contentType)
			if err != nil {
				return err
			}
			names[i] = stored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		Discard(ctx, store, names)
		return nil, err
	}
	return names, nil
}
