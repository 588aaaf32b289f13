package cdn

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHTTPUploader_Upload(t *testing.T) {
	var gotPreset, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
		}
		gotPreset = r.FormValue("upload_preset")
		_, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file: %v", err)
		} else {
			gotName = hdr.Filename
		}
		w.Write([]byte(`{"secure_url":"https://cdn.example/invoice.pdf"}`))
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.URL, "unsigned", 0, zap.NewNop())
	url, err := u.Upload(context.Background(), File{Name: "invoice.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.example/invoice.pdf" {
		t.Errorf("url = %q", url)
	}
	if gotPreset != "unsigned" || gotName != "invoice.pdf" {
		t.Errorf("preset=%q name=%q", gotPreset, gotName)
	}
}

func TestStore_FallsBackToBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"down"}}`))
	}))
	defer srv.Close()

	data := []byte("receipt")
	got := Store(context.Background(), NewHTTPUploader(srv.URL, "", 0, nil), File{Name: "r.txt", Data: data}, zap.NewNop())
	if got != base64.StdEncoding.EncodeToString(data) {
		t.Errorf("fallback = %q", got)
	}
	if Store(context.Background(), nil, File{}, nil) != "" {
		t.Error("empty file should store nothing")
	}
}

func TestDownscale(t *testing.T) {
	big := File{Name: "a.png", ContentType: "image/png", Data: pngOf(t, 400, 200)}
	out := Downscale(big, 100)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", cfg.Width, cfg.Height)
	}

	small := File{Name: "b.png", ContentType: "image/png", Data: pngOf(t, 50, 50)}
	if got := Downscale(small, 100); !bytes.Equal(got.Data, small.Data) {
		t.Error("small image should be unchanged")
	}
	doc := File{ContentType: "application/pdf", Data: []byte("%PDF")}
	if got := Downscale(doc, 10); !bytes.Equal(got.Data, doc.Data) {
		t.Error("non-image should be unchanged")
	}
}

func TestFromBase64_DataURL(t *testing.T) {
	enc := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("xyz"))
	f, err := FromBase64("image", enc)
	if err != nil {
		t.Fatalf("FromBase64: %v", err)
	}
	if f.ContentType != "image/png" || string(f.Data) != "xyz" {
		t.Errorf("file = %+v", f)
	}
	if _, err := FromBase64("image", "!!"); err == nil {
		t.Error("invalid payload accepted")
	}
}
