package images

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/beevik/etree"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const defaultSVGSize = 64 // Default size to use when SVG viewBox has no size

// maxRasterDim is the maximum pixel dimension (width or height) allowed when
// rasterizing an SVG. This prevents OOM from malicious SVGs with enormous
// viewBox values (e.g. viewBox="0 0 100000 100000" would otherwise allocate
// ~37 GB for the RGBA buffer).
var maxRasterDim = 8192

// verifyDim is the size of the box optimized icons are rendered into when
// checking that they are still drawable.
const verifyDim = 32

// IsSVG reports whether text is a well-formed XML document whose single root
// element is <svg>. Leading and trailing whitespace, XML declaration,
// comments and DOCTYPE are allowed around the root.
func IsSVG(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		Entity: xml.HTMLEntity,
	}
	if err := doc.ReadFromString(text); err != nil {
		return false
	}

	roots := 0
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			roots++
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return false
			}
		}
	}
	if roots != 1 {
		return false
	}
	return strings.EqualFold(doc.Root().Tag, "svg")
}

// RasterizeSVG rasterizes SVG to an RGBA image.
//
// Rules:
//   - if targetW == 0 && targetH == 0: use SVG viewBox dimensions (fallback to 64x64)
//   - if only one of targetW/targetH is > 0: scale by that dimension keeping aspect ratio
//   - if both targetW and targetH are > 0: fit into that box keeping aspect ratio
func RasterizeSVG(svgData []byte, targetW, targetH int) (img image.Image, err error) {
	// oksvg panics on some malformed path data
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("unable to rasterize svg: %v", r)
		}
	}()

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, err
	}

	intrW := int(math.Ceil(icon.ViewBox.W))
	intrH := int(math.Ceil(icon.ViewBox.H))
	if intrW <= 0 {
		intrW = defaultSVGSize
	}
	if intrH <= 0 {
		intrH = defaultSVGSize
	}

	w, h := intrW, intrH
	if targetW <= 0 && targetH <= 0 {
		// Keep intrinsic size.
	} else if targetW > 0 && targetH <= 0 {
		w = targetW
		h = int(math.Round(float64(w) * float64(intrH) / float64(intrW)))
	} else if targetH > 0 && targetW <= 0 {
		h = targetH
		w = int(math.Round(float64(h) * float64(intrW) / float64(intrH)))
	} else {
		scaleW := float64(targetW) / float64(intrW)
		scaleH := float64(targetH) / float64(intrH)
		scale := math.Min(scaleW, scaleH)
		w = int(math.Round(float64(intrW) * scale))
		h = int(math.Round(float64(intrH) * scale))
	}
	w = max(w, 1)
	h = max(h, 1)

	// Clamp to maxRasterDim preserving aspect ratio to prevent OOM.
	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}

// ErrNotSVG is returned by VerifySVG when markup is no longer an SVG document.
var ErrNotSVG = errors.New("not an svg document")

// VerifySVG makes sure optimized markup is still an SVG document which can
// be rendered.
func VerifySVG(svg string) error {
	if !IsSVG(svg) {
		return ErrNotSVG
	}
	if _, err := RasterizeSVG([]byte(svg), verifyDim, verifyDim); err != nil {
		return fmt.Errorf("unable to render svg: %w", err)
	}
	return nil
}
