// Package imaging provides the deterministic face-overlay compositor. It is a
// pure pixel routine with no model involvement, kept as an independently
// usable primitive for callers that blend a portrait onto generated artwork.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// Position anchors the face overlay in one corner of the base image.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

const (
	// faceScale sizes the face circle relative to the base image height.
	faceScale = 0.35
	// borderWidth is the uniform white ring around the face circle.
	borderWidth = 8
	// edgeMargin keeps the overlay square away from the image edges.
	edgeMargin = 30
)

// Composite overlays a circular crop of face onto base at the given corner and
// re-encodes the result as PNG. The face is cover-fitted into a square of
// round(baseHeight*0.35) pixels, masked to a circle, and ringed with an 8px
// white border before placement.
func Composite(baseData, faceData []byte, position Position) ([]byte, error) {
	base, _, err := image.Decode(bytes.NewReader(baseData))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode base image: %w", err)
	}
	face, _, err := image.Decode(bytes.NewReader(faceData))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode face image: %w", err)
	}

	baseBounds := base.Bounds()
	faceSize := int(math.Round(float64(baseBounds.Dy()) * faceScale))
	if faceSize <= 0 {
		return nil, fmt.Errorf("imaging: base image too small to composite")
	}

	overlay := renderFaceOverlay(face, faceSize)
	side := overlay.Bounds().Dx()

	left, top, err := overlayOrigin(position, baseBounds.Dx(), baseBounds.Dy(), side)
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, baseBounds.Dx(), baseBounds.Dy()))
	draw.Draw(out, out.Bounds(), base, baseBounds.Min, draw.Src)
	target := image.Rect(left, top, left+side, top+side)
	draw.Draw(out, target, overlay, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("imaging: encode composite: %w", err)
	}
	return buf.Bytes(), nil
}

// renderFaceOverlay produces the bordered circular face square of side faceSize+2*borderWidth.
func renderFaceOverlay(face image.Image, faceSize int) *image.RGBA {
	side := faceSize + 2*borderWidth
	overlay := image.NewRGBA(image.Rect(0, 0, side, side))

	center := float64(side) / 2

	// White ring first; the face circle is drawn over its inner area.
	drawCircle(overlay, center, center, float64(side)/2, func(x, y int) color.Color {
		return color.White
	})

	scaled := coverFit(face, faceSize)
	faceOrigin := image.Pt(borderWidth, borderWidth)
	drawCircle(overlay, center, center, float64(faceSize)/2, func(x, y int) color.Color {
		return scaled.At(x-faceOrigin.X, y-faceOrigin.Y)
	})

	return overlay
}

// coverFit scales the source so the shorter dimension fills size, cropping the
// overflow around the center.
func coverFit(src image.Image, size int) *image.RGBA {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	scale := float64(size) / float64(srcW)
	if srcH < srcW {
		scale = float64(size) / float64(srcH)
	}
	scaledW := int(math.Ceil(float64(srcW) * scale))
	scaledH := int(math.Ceil(float64(srcH) * scale))

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, xdraw.Src, nil)

	cropX := (scaledW - size) / 2
	cropY := (scaledH - size) / 2
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(cropX, cropY), draw.Src)
	return out
}

// drawCircle fills the circle of the given center and radius using fill for
// each covered pixel.
func drawCircle(dst *image.RGBA, cx, cy, radius float64, fill func(x, y int) color.Color) {
	bounds := dst.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= radius*radius {
				dst.Set(x, y, fill(x, y))
			}
		}
	}
}

func overlayOrigin(position Position, baseW, baseH, side int) (int, int, error) {
	switch position {
	case PositionTopLeft:
		return edgeMargin, edgeMargin, nil
	case PositionTopRight:
		return baseW - side - edgeMargin, edgeMargin, nil
	case PositionBottomLeft:
		return edgeMargin, baseH - side - edgeMargin, nil
	case PositionBottomRight, "":
		return baseW - side - edgeMargin, baseH - side - edgeMargin, nil
	default:
		return 0, 0, fmt.Errorf("imaging: unsupported position %q", position)
	}
}
