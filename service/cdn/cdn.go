// Package cdn uploads invoice and item images to an external CDN and falls
// back to storing the payload inline as base64 when the CDN is unavailable.
package cdn

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"warehouse.GO/core/apperr"
)

// File is an uploaded payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FromBase64 decodes a base64 body, tolerating a data: URL prefix.
func FromBase64(name, encoded string) (File, error) {
	ct := ""
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i > 0 {
			meta := encoded[5:i]
			ct = strings.TrimSuffix(meta, ";base64")
			encoded = encoded[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return File{}, apperr.Validationf(name, "invalid base64 payload")
	}
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return File{Name: name, ContentType: ct, Data: data}, nil
}

type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// HTTPUploader posts unsigned multipart uploads to a Cloudinary-style
// endpoint and returns the secure URL of the stored asset.
type HTTPUploader struct {
	URL        string
	Preset     string
	MaxImagePx int
	Client     *http.Client
	log        *zap.Logger
}

func NewHTTPUploader(url, preset string, maxPx int, log *zap.Logger) *HTTPUploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPUploader{
		URL:        url,
		Preset:     preset,
		MaxImagePx: maxPx,
		Client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (u *HTTPUploader) Upload(ctx context.Context, f File) (string, error) {
	if u.URL == "" {
		return "", apperr.Upstreamf(nil, "cdn not configured")
	}
	f = Downscale(f, u.MaxImagePx)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	name := f.Name
	if name == "" {
		name = "upload"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", err
	}
	if u.Preset != "" {
		_ = w.WriteField("upload_preset", u.Preset)
	}
	_ = w.WriteField("public_id", strings.TrimSuffix(name, path.Ext(name)))
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := u.Client.Do(req)
	if err != nil {
		return "", apperr.Upstreamf(err, "cdn upload failed")
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var out uploadResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode >= 300 {
		msg := resp.Status
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", apperr.Upstreamf(nil, "cdn upload failed: %s", msg)
	}
	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return "", apperr.Upstreamf(nil, "cdn upload returned no url")
}

// Downscale shrinks raster images so the longer side is at most maxPx.
// Non-images and images already within bounds are returned unchanged.
func Downscale(f File, maxPx int) File {
	if maxPx <= 0 || !strings.HasPrefix(f.ContentType, "image/") {
		return f
	}
	img, format, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return f
	}
	b := img.Bounds()
	if b.Dx() <= maxPx && b.Dy() <= maxPx {
		return f
	}
	resized := imaging.Fit(img, maxPx, maxPx, imaging.Lanczos)
	enc := imaging.JPEG
	if format == "png" {
		enc = imaging.PNG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, enc, imaging.JPEGQuality(85)); err != nil {
		return f
	}
	f.Data = buf.Bytes()
	return f
}

// Store uploads f and returns the URL. When the upload fails the payload is
// kept inline as base64 so the record can still be saved.
func Store(ctx context.Context, u Uploader, f File, log *zap.Logger) string {
	if len(f.Data) == 0 {
		return ""
	}
	if u != nil {
		url, err := u.Upload(ctx, f)
		if err == nil {
			return url
		}
		if log != nil {
			log.Warn("cdn upload failed, storing inline", zap.String("file", f.Name), zap.Error(err))
		}
	}
	return base64.StdEncoding.EncodeToString(f.Data)
}

// String is used in log lines.
func (f File) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", f.Name, f.ContentType, len(f.Data))
}
