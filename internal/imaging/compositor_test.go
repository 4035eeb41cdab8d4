package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode composite: %v", err)
	}
	return img
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	return ar == br && ag == bg && ab == bb
}

func TestCompositeGeometry(t *testing.T) {
	blue := color.RGBA{R: 0, G: 0, B: 255, A: 255}
	red := color.RGBA{R: 255, G: 0, B: 0, A: 255}

	base := solidPNG(t, 200, 100, blue)
	face := solidPNG(t, 60, 60, red)

	out, err := Composite(base, face, PositionBottomRight)
	if err != nil {
		t.Fatalf("Composite returned error: %v", err)
	}

	img := decodePNG(t, out)
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Fatalf("composite must keep base dimensions, got %v", img.Bounds())
	}

	// faceSize = round(100*0.35) = 35; overlay side = 35 + 16 = 51.
	// Bottom-right origin: (200-51-30, 100-51-30) = (119, 19).
	const left, top, side = 119, 19, 51

	if got := img.At(left+side/2, top+side/2); !sameColor(got, red) {
		t.Fatalf("expected face color at overlay center, got %v", got)
	}
	if got := img.At(left+side/2, top+2); !sameColor(got, color.White) {
		t.Fatalf("expected white border ring, got %v", got)
	}
	if got := img.At(left+1, top+1); !sameColor(got, blue) {
		t.Fatalf("expected base to show through outside the circle, got %v", got)
	}
	if got := img.At(10, 50); !sameColor(got, blue) {
		t.Fatalf("expected base untouched away from overlay, got %v", got)
	}
}

func TestCompositePositions(t *testing.T) {
	blue := color.RGBA{B: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}

	base := solidPNG(t, 200, 200, blue)
	face := solidPNG(t, 40, 40, red)

	// faceSize = round(200*0.35) = 70; side = 86.
	const side = 86
	tests := []struct {
		position Position
		left     int
		top      int
	}{
		{PositionTopLeft, 30, 30},
		{PositionTopRight, 200 - side - 30, 30},
		{PositionBottomLeft, 30, 200 - side - 30},
		{PositionBottomRight, 200 - side - 30, 200 - side - 30},
	}

	for _, tc := range tests {
		t.Run(string(tc.position), func(t *testing.T) {
			out, err := Composite(base, face, tc.position)
			if err != nil {
				t.Fatalf("Composite returned error: %v", err)
			}
			img := decodePNG(t, out)
			if got := img.At(tc.left+side/2, tc.top+side/2); !sameColor(got, red) {
				t.Fatalf("expected face at %s center (%d,%d), got %v", tc.position, tc.left+side/2, tc.top+side/2, got)
			}
		})
	}
}

func TestCompositeCoverFitCropsLandscapeFace(t *testing.T) {
	blue := color.RGBA{B: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}

	base := solidPNG(t, 200, 100, blue)
	// A wide face source still fills the whole circle after cover-fit.
	face := solidPNG(t, 120, 30, red)

	out, err := Composite(base, face, PositionTopLeft)
	if err != nil {
		t.Fatalf("Composite returned error: %v", err)
	}
	img := decodePNG(t, out)

	const left, top, side = 30, 30, 51
	if got := img.At(left+side/2, top+side/2); !sameColor(got, red) {
		t.Fatalf("expected cover-fitted face to fill circle, got %v", got)
	}
}

func TestCompositeUnsupportedPosition(t *testing.T) {
	base := solidPNG(t, 100, 100, color.White)
	face := solidPNG(t, 20, 20, color.Black)

	if _, err := Composite(base, face, Position("center")); err == nil {
		t.Fatal("expected error for unsupported position")
	}
}

func TestCompositeRejectsUndecodableInput(t *testing.T) {
	face := solidPNG(t, 20, 20, color.Black)

	if _, err := Composite([]byte("not an image"), face, PositionTopLeft); err == nil {
		t.Fatal("expected error for undecodable base image")
	}
	if _, err := Composite(face, []byte("not an image"), PositionTopLeft); err == nil {
		t.Fatal("expected error for undecodable face image")
	}
}
