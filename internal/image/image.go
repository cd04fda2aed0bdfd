package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/manash/slidegen/internal/aspect"
	"github.com/manash/slidegen/pkg/models"
)

// CropOptions selects the optional post-generation crop. A nil Ratio
// disables cropping.
type CropOptions struct {
	Ratio *aspect.Ratio
	Mode  aspect.Mode
}

type Saver struct {
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func NewSaver() *Saver {
	return &Saver{
		dirPerm:  0755,
		filePerm: 0644,
	}
}

// Decode parses image bytes returned by the service.
func (s *Saver) Decode(data []byte) (stdimage.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", models.ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	return img, nil
}

// Process decodes data and applies the crop, if any.
func (s *Saver) Process(data []byte, crop CropOptions) (stdimage.Image, error) {
	img, err := s.Decode(data)
	if err != nil {
		return nil, err
	}
	if crop.Ratio == nil {
		return img, nil
	}
	return aspect.Crop(img, *crop.Ratio, crop.Mode)
}

// Save writes img as PNG to path, creating parent directories.
func (s *Saver) Save(img stdimage.Image, path string) error {
	if err := s.ensureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.filePerm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, s.dirPerm)
}

// ResolvePath returns out unchanged unless it names a directory, in which
// case a timestamped file name inside it is returned.
func ResolvePath(out string, now time.Time) string {
	if strings.HasSuffix(out, "/") || strings.HasSuffix(out, string(filepath.Separator)) {
		return filepath.Join(out, GenerateFilenameWithTime(now))
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, GenerateFilenameWithTime(now))
	}
	return out
}

func GenerateFilenameWithTime(t time.Time) string {
	return fmt.Sprintf("slide-%s.%s", t.Format("20060102-150405"), models.FormatPNG)
}

// DetectMimeType returns the MIME type of a template file, sniffing its
// contents first and falling back to the file extension.
func DetectMimeType(path string, data []byte) string {
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
