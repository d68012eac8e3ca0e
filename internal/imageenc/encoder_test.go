package imageenc_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"sdportal/internal/imageenc"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestEncodeRemoteUsesContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp; charset=binary")
		_, _ = w.Write([]byte("RIFFxxxxWEBP"))
	}))
	defer srv.Close()

	enc := imageenc.New()
	got, err := enc.Encode(context.Background(), srv.URL+"/images/0")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/webp;base64,") {
		t.Fatalf("unexpected data url %q", got)
	}
}

func TestEncodeRemoteSniffsOctetStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	got, err := imageenc.New().Encode(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Fatalf("expected sniffed png, got %q", got)
	}
}

func TestEncodeRemoteFailsOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := imageenc.New().Encode(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestEncodeLocalAsset(t *testing.T) {
	assets := fstest.MapFS{
		"standing/standing_03.png": &fstest.MapFile{Data: pngHeader},
	}
	enc := imageenc.New(imageenc.WithAssets(assets))

	got, err := enc.Encode(context.Background(), "standing/standing_03.png")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	mediaType, data, err := imageenc.DecodeDataURL(got)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mediaType != "image/png" || !bytes.Equal(data, pngHeader) {
		t.Fatalf("round trip mismatch: %s %x", mediaType, data)
	}

	_, err = enc.Encode(context.Background(), "standing/standing_04.png")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected missing asset error, got %v", err)
	}
}

func TestEncodeLocalWithoutAssets(t *testing.T) {
	_, err := imageenc.New().Encode(context.Background(), "sitting/sitting_00.png")
	if !errors.Is(err, imageenc.ErrNoAssets) {
		t.Fatalf("expected ErrNoAssets, got %v", err)
	}
}

func TestDecodeDataURLRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "image/png;base64,AAAA", "data:image/png,AAAA", "data:image/png;base64,@@@"} {
		if _, _, err := imageenc.DecodeDataURL(input); !errors.Is(err, imageenc.ErrInvalidDataURL) {
			t.Fatalf("%q: expected ErrInvalidDataURL, got %v", input, err)
		}
	}
}

func TestExtension(t *testing.T) {
	cases := map[string]string{"image/png": "png", "image/jpeg": "jpg", "IMAGE/WEBP": "webp", "text/plain": "bin"}
	for mediaType, want := range cases {
		if got := imageenc.Extension(mediaType); got != want {
			t.Fatalf("%s: expected %s, got %s", mediaType, want, got)
		}
	}
}
