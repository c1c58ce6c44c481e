package storage

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func formFiles(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		fw, err := mw.CreateFormFile("proof_images", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File["proof_images"]
}

func TestSaveImagesToLocalStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	files := formFiles(t, map[string][]byte{"a.png": pngHeader, "b.PNG": pngHeader})

	names, err := SaveImages(context.Background(), store, "sub_1", files, 1<<20)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
	for _, n := range names {
		if !strings.HasPrefix(n, "sub_1_") || !strings.HasSuffix(strings.ToLower(n), ".png") {
			t.Fatalf("unexpected object name %q", n)
		}
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil || !bytes.Equal(data, pngHeader) {
			t.Fatalf("stored file mismatch for %s: %v", n, err)
		}
	}
}

func TestSaveImagesRejectsNonImages(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())

	files := formFiles(t, map[string][]byte{"notes.txt": []byte("hello")})
	if _, err := SaveImages(context.Background(), store, "x", files, 1<<20); !errors.Is(err, ErrBadImage) {
		t.Fatalf("expected ErrBadImage for extension, got %v", err)
	}

	files = formFiles(t, map[string][]byte{"fake.jpg": []byte("<html>not an image</html>")})
	if _, err := SaveImages(context.Background(), store, "x", files, 1<<20); !errors.Is(err, ErrBadImage) {
		t.Fatalf("expected ErrBadImage for content, got %v", err)
	}

	files = formFiles(t, map[string][]byte{"big.png": pngHeader})
	if _, err := SaveImages(context.Background(), store, "x", files, 8); !errors.Is(err, ErrBadImage) {
		t.Fatalf("expected ErrBadImage for size, got %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())
	if _, err := store.Save(context.Background(), "../escape.png", bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestDiscardRemovesStoredObjects(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewLocalStore(dir)
	names, err := SaveImages(context.Background(), store, "proof-1", formFiles(t, map[string][]byte{
		"a.png": pngHeader,
		"b.png": pngHeader,
	}), 1<<20)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	Discard(context.Background(), store, append(names, "missing.png"))
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir after discard, found %d entries", len(entries))
	}
	if err := store.Delete(context.Background(), "../escape.png"); err == nil {
		t.Fatalf("expected traversal to be rejected on delete")
	}
}
