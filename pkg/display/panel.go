package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	pdisplay "periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
)

// Panel renders frames on a periph display.Drawer.
type Panel struct {
	dev    pdisplay.Drawer
	w, h   int
	digits font.Face
	short  font.Face
	line   font.Face
	online bool
}

var _ Display = (*Panel)(nil)

// NewPanel sizes the fonts for the bounds of dev.
func NewPanel(dev pdisplay.Drawer) (*Panel, error) {
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	b := dev.Bounds()
	h := float64(b.Dy())
	return &Panel{
		dev:    dev,
		w:      b.Dx(),
		h:      b.Dy(),
		digits: truetype.NewFace(bold, &truetype.Options{Size: h * 0.55}),
		short:  truetype.NewFace(regular, &truetype.Options{Size: h * 0.25}),
		line:   truetype.NewFace(regular, &truetype.Options{Size: h * 0.14}),
	}, nil
}

// OpenSSD1306 opens an SSD1306 OLED on the named I²C bus.
func OpenSSD1306(bus string, w, h int) (*Panel, i2c.BusCloser, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, nil, fmt.Errorf("open i2c: %w", err)
	}
	opts := ssd1306.DefaultOpts
	if w > 0 {
		opts.W = w
	}
	if h > 0 {
		opts.H = h
	}
	if opts.H == 32 {
		opts.Sequential = true
	}
	dev, err := ssd1306.NewI2C(b, &opts)
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("init ssd1306: %w", err)
	}
	p, err := NewPanel(dev)
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	return p, b, nil
}

func (p *Panel) SetOnline(online bool) { p.online = online }

func (p *Panel) Text(s string, fg, bg color.Color) error {
	face := p.line
	switch {
	case IsNumeric(s):
		face = p.digits
	case len(s) < 10:
		face = p.short
	}
	return p.render(bg, func(dc *gg.Context) {
		dc.SetFontFace(face)
		dc.SetColor(fg)
		dc.DrawStringAnchored(s, float64(p.w)/2, float64(p.h)/2, 0.5, 0.5)
	})
}

func (p *Panel) Lines(lines []string, fg, bg color.Color) error {
	lh := float64(p.h) * 0.22
	return p.render(bg, func(dc *gg.Context) {
		dc.SetFontFace(p.line)
		dc.SetColor(fg)
		y := float64(p.h)/2 - float64(len(lines)-1)*lh/2
		for _, l := range lines {
			dc.DrawStringAnchored(l, float64(p.w)/2, y, 0.5, 0.5)
			y += lh
		}
	})
}

func (p *Panel) Logo() error {
	return p.render(Black, func(dc *gg.Context) {
		dc.SetFontFace(p.short)
		dc.SetColor(Green)
		dc.DrawStringAnchored("CO2", float64(p.w)/2, float64(p.h)*0.4, 0.5, 0.5)
		dc.SetFontFace(p.line)
		dc.SetColor(White)
		dc.DrawStringAnchored("monitor", float64(p.w)/2, float64(p.h)*0.75, 0.5, 0.5)
	})
}

func (p *Panel) render(bg color.Color, draw func(dc *gg.Context)) error {
	dc := gg.NewContext(p.w, p.h)
	dc.SetColor(bg)
	dc.Clear()
	if p.online {
		dc.SetColor(Blue)
		dc.DrawRectangle(0.5, 0.5, float64(p.w)-1, float64(p.h)-1)
		dc.Stroke()
	}
	draw(dc)
	return p.dev.Draw(p.dev.Bounds(), dc.Image(), image.Point{})
}
