package crop

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeometry(t *testing.T) {
	r, err := ParseGeometry("1000x1475+150+150")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(150, 150, 1150, 1625), r)

	for _, bad := range []string{"", "1000x1475", "0x10+0+0", "axb+1+2", "10x10-1+2"} {
		_, err := ParseGeometry(bad)
		assert.Error(t, err, bad)
	}
}

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	return img
}

func TestImageClipsToBounds(t *testing.T) {
	src := checker(100, 80)

	dst, ok := Image(src, image.Rect(90, 70, 200, 200))
	require.True(t, ok)
	assert.Equal(t, 10, dst.Bounds().Dx())
	assert.Equal(t, 10, dst.Bounds().Dy())
	assert.Equal(t, color.RGBA{90, 70, 0, 255}, dst.RGBAAt(0, 0))

	_, ok = Image(src, image.Rect(500, 500, 600, 600))
	assert.False(t, ok)
}

func TestFileRewritesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page-0001.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, checker(40, 40)))
	require.NoError(t, f.Close())

	changed, err := File(path, image.Rect(10, 10, 30, 20))
	require.NoError(t, err)
	assert.True(t, changed)

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 10, cfg.Height)

	changed, err = File(path, image.Rect(100, 100, 120, 120))
	require.NoError(t, err)
	assert.False(t, changed)
}
