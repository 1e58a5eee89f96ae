// Package annotate renders proximity results onto frames: a coloured box and
// distance label per person plus a status banner across the top.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/teslashibe/go-proximity/pkg/proximity"
)

var regular *truetype.Font

func init() {
	var err error
	regular, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Colours used on the overlay.
var (
	Green = color.RGBA{0, 255, 0, 255}
	Red   = color.RGBA{255, 0, 0, 255}
	Black = color.RGBA{0, 0, 0, 255}
	White = color.RGBA{255, 255, 255, 255}
)

// Style controls sizes on the overlay.
type Style struct {
	BoxWidth     float64 // Stroke width of person boxes
	LabelSize    float64 // Font size of the distance label
	LabelOffset  int     // Label baseline distance above the box
	BannerHeight int     // Status banner height in pixels
	BannerSize   float64 // Font size of the banner text
	BannerInset  image.Point
}

// DefaultStyle is a 60px banner with 18pt labels, sized for 720p frames.
func DefaultStyle() Style {
	return Style{
		BoxWidth:     2,
		LabelSize:    18,
		LabelOffset:  10,
		BannerHeight: 60,
		BannerSize:   28,
		BannerInset:  image.Point{X: 20, Y: 40},
	}
}

// Annotator draws assessments onto frames. It caches font faces, so an
// Annotator must not be shared between goroutines.
type Annotator struct {
	trigger float64
	style   Style

	labelFace  font.Face
	bannerFace font.Face
}

// New returns an Annotator colouring people closer than triggerCm green.
func New(triggerCm float64, style Style) *Annotator {
	return &Annotator{
		trigger:    triggerCm,
		style:      style,
		labelFace:  truetype.NewFace(regular, &truetype.Options{Size: style.LabelSize}),
		bannerFace: truetype.NewFace(regular, &truetype.Options{Size: style.BannerSize}),
	}
}

// Draw returns a copy of frame with the assessment drawn on it. The input
// frame is left untouched.
func (a *Annotator) Draw(frame image.Image, fa proximity.FrameAssessment) image.Image {
	dc := gg.NewContextForImage(frame)

	for _, obs := range fa.Observations {
		c := BoxColor(obs.DistanceCm, a.trigger)
		r := obs.Box.Rect()
		drawRectangleEmpty(dc, r, c, a.style.BoxWidth)
		a.drawString(dc, a.labelFace, Label(obs), image.Point{X: r.Min.X, Y: r.Min.Y - a.style.LabelOffset}, c)
	}

	bg, fg := Red, White
	if fa.Alert {
		bg, fg = Green, Black
	}
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, float64(dc.Width()), float64(a.style.BannerHeight))
	dc.Fill()
	a.drawString(dc, a.bannerFace, BannerText(fa), a.style.BannerInset, fg)

	return dc.Image()
}

// BoxColor is green for people inside the trigger distance and red otherwise.
func BoxColor(distanceCm, triggerCm float64) color.RGBA {
	if distanceCm < triggerCm {
		return Green
	}
	return Red
}

// Label is the text shown above a person's box.
func Label(obs proximity.PersonObservation) string {
	return fmt.Sprintf("%dcm", int(obs.DistanceCm))
}

// BannerText is the status line for a frame.
func BannerText(fa proximity.FrameAssessment) string {
	if closest, ok := fa.ClosestCm(); ok && fa.Alert {
		return fmt.Sprintf("ACTION: TURN ON (Dist: %dcm)", int(closest))
	}
	return "ACTION: TURN OFF (No one near)"
}

// drawString writes text with its baseline at p.
func (a *Annotator) drawString(dc *gg.Context, face font.Face, text string, p image.Point, c color.Color) {
	dc.SetFontFace(face)
	dc.SetColor(c)
	dc.DrawString(text, float64(p.X), float64(p.Y))
}

func drawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}
