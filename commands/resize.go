package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	// Registered decoders back both ResizeToTemp and ListImages.
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/gift"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

// ResizeToTemp decodes the image at srcPath, applies its EXIF orientation,
// downscales it to fit within maxWidth x maxHeight preserving aspect ratio
// (never upscaling), and writes it as a JPEG into tmpDir. It returns the path
// of the written file.
func ResizeToTemp(srcPath, tmpDir string, maxWidth, maxHeight int) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", srcPath, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%s is not a decodable image: %w", srcPath, err)
	}

	// Orientation lives in EXIF, which only JPEGs carry; decode errors just
	// mean there is nothing to rotate.
	if meta, err := exif.Decode(bytes.NewReader(data)); err == nil {
		img = applyExifOrientation(img, meta)
	}

	bounds := img.Bounds()
	w, h, err := fitDimensions(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	if err != nil {
		return "", fmt.Errorf("cannot resize %s: %w", srcPath, err)
	}
	if w != bounds.Dx() || h != bounds.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		img = scaled
	}

	base := filepath.Base(srcPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	outPath := filepath.Join(tmpDir, fmt.Sprintf("%s_%dx%d.jpg", base, maxWidth, maxHeight))
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 95}); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return outPath, nil
}

// fitDimensions returns the largest dimensions within maxWidth x maxHeight
// that preserve the original aspect ratio. Images already inside the box keep
// their original dimensions.
func fitDimensions(origWidth, origHeight, maxWidth, maxHeight int) (width, height int, err error) {
	if origWidth <= 0 || origHeight <= 0 {
		return 0, 0, fmt.Errorf("invalid source dimensions %dx%d", origWidth, origHeight)
	}
	if maxWidth <= 0 || maxHeight <= 0 {
		return 0, 0, fmt.Errorf("invalid target dimensions %dx%d", maxWidth, maxHeight)
	}
	if origWidth <= maxWidth && origHeight <= maxHeight {
		return origWidth, origHeight, nil
	}
	w, h := maxWidth, maxHeight
	if float64(origWidth)/float64(origHeight) > float64(w)/float64(h) {
		h = origHeight * w / origWidth
	} else {
		w = origWidth * h / origHeight
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h, nil
}

// applyExifOrientation rotates or flips img according to the EXIF Orientation
// tag, so the uploaded variants render upright everywhere.
func applyExifOrientation(img image.Image, meta *exif.Exif) image.Image {
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}
	switch orientation {
	case 2:
		return giftFilter(img, gift.FlipHorizontal())
	case 3:
		return giftFilter(img, gift.Rotate180())
	case 4:
		return giftFilter(img, gift.FlipVertical())
	case 6:
		return giftFilter(img, gift.Rotate270())
	case 8:
		return giftFilter(img, gift.Rotate90())
	}
	return img
}

func giftFilter(src image.Image, filter gift.Filter) image.Image {
	g := gift.New(filter)
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}
