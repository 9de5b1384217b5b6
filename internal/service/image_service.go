package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	// Decoders for accepted upload formats.
	_ "image/gif"
	_ "image/png"

	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/observability"

	"github.com/chai2010/webp"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "media"
	DefaultImageMaxUploadSizeMB = 5
	PostImageMaxSize            = 960
	JPEGQuality                 = 82
	WebPQuality                 = 70
	postImagePrefix             = "posts"
)

// ImageUpload is a raw uploaded file.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService normalizes post images and stores them under the media root
// as a JPEG plus a WebP sibling, named by content hash.
type ImageService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	maxBytes := int64(DefaultImageMaxUploadSizeMB) << 20
	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxBytes = cfg.ImageMaxUploadBytes()
		}
	}
	return &ImageService{mediaDir: mediaDir, maxUploadSizeBytes: maxBytes}
}

// MediaDir is the filesystem root images are written under.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

// Save validates and stores in, returning the path relative to the media root.
// Invalid uploads are a form error on "image".
func (s *ImageService) Save(ctx context.Context, in ImageUpload) (string, error) {
	span, _ := observability.StartSpan(ctx, "image.save", attribute.Int("image.bytes", len(in.Content)))
	defer span.End()

	if len(in.Content) == 0 {
		return "", imageError("The submitted file is empty.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", imageError(fmt.Sprintf("File too large (max %dMB).", s.maxUploadSizeBytes>>20))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return "", imageError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", imageError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", imageError("Image content type mismatch.")
	}

	fitted := resizeToFit(decoded, PostImageMaxSize, PostImageMaxSize)
	jpg, err := encodeJPEG(fitted, JPEGQuality)
	if err != nil {
		span.SetError(err)
		return "", models.NewInternalError(err)
	}
	wp, err := encodeWebP(fitted, WebPQuality)
	if err != nil {
		span.SetError(err)
		return "", models.NewInternalError(err)
	}

	rel := path.Join(postImagePrefix, contentHash(jpg)+".jpg")
	jpgAbs := filepath.Join(s.mediaDir, filepath.FromSlash(rel))
	webpAbs := webpSibling(jpgAbs)
	if err := writeBytesToFile(jpgAbs, jpg); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpAbs, wp); err != nil {
		_ = os.Remove(jpgAbs)
		return "", models.NewInternalError(err)
	}
	return rel, nil
}

// Remove deletes a stored image and its WebP sibling. Missing files are ignored.
func (s *ImageService) Remove(rel string) error {
	if !isPostImagePath(rel) {
		return fmt.Errorf("refusing to remove %q", rel)
	}
	jpgAbs := filepath.Join(s.mediaDir, filepath.FromSlash(rel))
	for _, p := range []string{jpgAbs, webpSibling(jpgAbs)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func imageError(msg string) error {
	return models.NewFormError(map[string][]string{"image": {msg}})
}

// isPostImagePath accepts only posts/<lowercase hex>.jpg.
func isPostImagePath(rel string) bool {
	dir, file := path.Split(rel)
	if dir != postImagePrefix+"/" || !strings.HasSuffix(file, ".jpg") {
		return false
	}
	hash := strings.TrimSuffix(file, ".jpg")
	if hash == "" || len(hash) > 128 {
		return false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func webpSibling(jpgPath string) string {
	return strings.TrimSuffix(jpgPath, ".jpg") + ".webp"
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
