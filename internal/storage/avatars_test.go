package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAvatarStore_SaveGeneratesAllVariants(t *testing.T) {
	store, err := NewAvatarStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(7, testPNG(t, 300, 200)))

	for _, size := range AvatarSizes {
		for _, format := range AvatarFormats {
			path, err := store.Path(7, size, format)
			require.NoError(t, err)
			assert.FileExists(t, path)
		}
	}
}

func TestAvatarStore_SaveRejectsGarbage(t *testing.T) {
	store, err := NewAvatarStore(t.TempDir())
	require.NoError(t, err)

	err = store.Save(1, []byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestAvatarStore_PathMissingVariant(t *testing.T) {
	store, err := NewAvatarStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Path(42, 80, "png")
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestAvatarStore_RemoveDeletesEverything(t *testing.T) {
	store, err := NewAvatarStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(9, testPNG(t, 160, 160)))
	require.NoError(t, store.Remove(9))

	_, err = store.Path(9, 80, "png")
	assert.ErrorIs(t, err, ErrVariantNotFound)

	// second remove is a no-op
	require.NoError(t, store.Remove(9))
}

func TestAvatarStore_VariantDimensions(t *testing.T) {
	store, err := NewAvatarStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(3, testPNG(t, 500, 300)))

	path, err := store.Path(3, 160, "png")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())
}
