// Package crop trims rendered page images to a fixed region, the way scans of
// printed rulings are cut down to their text block before recognition.
package crop

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"regexp"
	"strconv"

	"golang.org/x/image/draw"

	"github.com/nodewee/ruling-to-text/pkg/utils"
)

var geometryPattern = regexp.MustCompile(`^(\d+)x(\d+)\+(\d+)\+(\d+)$`)

// ParseGeometry parses an ImageMagick-style WxH+X+Y crop box
func ParseGeometry(s string) (image.Rectangle, error) {
	m := geometryPattern.FindStringSubmatch(s)
	if m == nil {
		return image.Rectangle{}, fmt.Errorf("invalid crop geometry %q (want WxH+X+Y)", s)
	}
	n := make([]int, 4)
	for i := range n {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid crop geometry %q: %w", s, err)
		}
		n[i] = v
	}
	w, h, x, y := n[0], n[1], n[2], n[3]
	if w == 0 || h == 0 {
		return image.Rectangle{}, fmt.Errorf("invalid crop geometry %q: empty box", s)
	}
	return image.Rect(x, y, x+w, y+h), nil
}

// Image returns the part of src inside box, clipped to src's bounds.
// ok is false when box and src do not overlap.
func Image(src image.Image, box image.Rectangle) (dst *image.RGBA, ok bool) {
	b := src.Bounds()
	r := box.Add(b.Min).Intersect(b)
	if r.Empty() {
		return nil, false
	}
	dst = image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst, true
}

// File crops the image at path in place. It reports false, leaving the file
// untouched, when the box misses the image entirely.
func File(path string, box image.Rectangle) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}

	dst, ok := Image(src, box)
	if !ok {
		return false, nil
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := utils.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return false, err
	}
	return true, nil
}
