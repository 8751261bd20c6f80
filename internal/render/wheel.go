package render

import (
	"image"
	"image/png"
	"io"
	"math"

	"spinwheel/internal/models"

	"github.com/fogleman/gg"
)

// Layout constants are expressed for a 500px canvas and scaled to the
// renderer size.
const (
	referenceSize = 500.0
	rimPadding    = 10.0
	iconSize      = 100.0
	iconInset     = 110.0 // distance from the rim to the icon center
)

// Renderer draws the wheel into an image.
type Renderer struct {
	size   int
	images *ImageCache
}

// NewRenderer creates a renderer producing size x size images.
func NewRenderer(size int, images *ImageCache) *Renderer {
	return &Renderer{size: size, images: images}
}

// Size returns the edge length of rendered images.
func (r *Renderer) Size() int { return r.size }

// Render draws prizes as pie segments under the given rotation. Segment i
// spans [i*arc, (i+1)*arc) clockwise from the right. Prizes without a loaded
// icon get their name written in the label color instead.
func (r *Renderer) Render(prizes []models.Prize, rotation float64) image.Image {
	dim := float64(r.size)
	center := dim / 2
	scale := dim / referenceSize
	radius := center - rimPadding*scale

	dc := gg.NewContext(r.size, r.size)
	if len(prizes) == 0 {
		return dc.Image()
	}
	arc := 2 * math.Pi / float64(len(prizes))

	dc.Push()
	dc.Translate(center, center)
	dc.Rotate(rotation)

	for i, p := range prizes {
		angle := float64(i) * arc

		dc.MoveTo(0, 0)
		dc.DrawArc(0, 0, radius, angle, angle+arc)
		dc.ClosePath()
		dc.SetHexColor(p.Color)
		dc.FillPreserve()
		dc.SetRGB(1, 1, 1)
		dc.SetLineWidth(2 * scale)
		dc.Stroke()

		dc.Push()
		dc.Rotate(angle + arc/2)
		dc.Translate(radius-iconInset*scale, 0)
		dc.Rotate(math.Pi / 2)

		var icon image.Image
		if r.images != nil {
			icon = r.images.Get(p.ID)
		}
		if icon != nil {
			b := icon.Bounds()
			dc.Scale(iconSize*scale/float64(b.Dx()), iconSize*scale/float64(b.Dy()))
			dc.DrawImageAnchored(icon, 0, 0, 0.5, 0.5)
		} else if p.Name != "" {
			dc.SetHexColor(p.TextColor)
			dc.DrawStringAnchored(p.Name, 0, 0, 0.5, 0.5)
		}
		dc.Pop()
	}

	dc.Pop()
	return dc.Image()
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
