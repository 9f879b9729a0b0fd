// Package storage keeps user avatar variants on local disk.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
)

var (
	// ErrUnsupportedImage is returned when the upload cannot be decoded
	// as png, jpeg or gif.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrVariantNotFound is returned when the requested size or format
	// has no stored file.
	ErrVariantNotFound = errors.New("avatar variant not found")
)

// AvatarSizes are the square pixel sizes generated for every upload.
var AvatarSizes = []int{80, 160, 240}

// AvatarFormats are the encodings stored per size.
var AvatarFormats = []string{"png", "webp"}

// AvatarStore writes avatar variants under dir/<userID>/<size>.<format>.
type AvatarStore struct {
	dir string
}

func NewAvatarStore(dir string) (*AvatarStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &AvatarStore{dir: dir}, nil
}

func (s *AvatarStore) userDir(userID uint) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d", userID))
}

func (s *AvatarStore) variantPath(userID uint, size int, format string) string {
	return filepath.Join(s.userDir(userID), fmt.Sprintf("%d.%s", size, format))
}

// Save decodes the upload and regenerates every size/format variant.
// Existing variants are overwritten so a re-upload fully replaces the
// previous avatar.
func (s *AvatarStore) Save(userID uint, data []byte) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ErrUnsupportedImage
	}

	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user avatar dir: %w", err)
	}

	for _, size := range AvatarSizes {
		scaled := scaleSquare(src, size)
		for _, format := range AvatarFormats {
			if err := s.writeVariant(userID, size, format, scaled); err != nil {
				return err
			}
		}
	}
	return nil
}

// scaleSquare center-crops the source to a square, then scales it to
// size x size with Catmull-Rom resampling.
func scaleSquare(src image.Image, size int) *image.RGBA {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	crop := image.Rect(
		b.Min.X+(b.Dx()-side)/2,
		b.Min.Y+(b.Dy()-side)/2,
		b.Min.X+(b.Dx()-side)/2+side,
		b.Min.Y+(b.Dy()-side)/2+side,
	)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}

func (s *AvatarStore) writeVariant(userID uint, size int, format string, img image.Image) error {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode png variant: %w", err)
		}
	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Quality: 85}); err != nil {
			return fmt.Errorf("encode webp variant: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("encode jpeg variant: %w", err)
		}
	default:
		return ErrVariantNotFound
	}

	path := s.variantPath(userID, size, format)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write avatar variant: %w", err)
	}
	return nil
}

// Path returns the on-disk location of a stored variant.
func (s *AvatarStore) Path(userID uint, size int, format string) (string, error) {
	path := s.variantPath(userID, size, format)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrVariantNotFound
		}
		return "", err
	}
	return path, nil
}

// Remove deletes every stored variant for the user. Removing an avatar
// that was never uploaded is a no-op.
func (s *AvatarStore) Remove(userID uint) error {
	if err := os.RemoveAll(s.userDir(userID)); err != nil {
		return fmt.Errorf("remove avatars: %w", err)
	}
	return nil
}
