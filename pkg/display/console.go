package display

import (
	"bytes"
	"image/color"
	"io"
	"strings"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Console renders frames on a terminal: a swatch of the background and
// foreground colours followed by the text.
type Console struct {
	w       io.Writer
	palette *ansi256.Palette
	online  bool
	last    string

	buf bytes.Buffer
}

var _ Display = (*Console)(nil)

// NewConsole writes to w, or to a colour-capable stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Console{w: w, palette: ansi256.Default}
}

func (c *Console) SetOnline(online bool) { c.online = online }

func (c *Console) Text(s string, fg, bg color.Color) error {
	return c.write(s, fg, bg)
}

func (c *Console) Lines(lines []string, fg, bg color.Color) error {
	return c.write(strings.Join(lines, " / "), fg, bg)
}

func (c *Console) Logo() error {
	return c.write("CO2 monitor", Green, Black)
}

// write skips frames identical to the previous one so the refresh cadence
// does not flood the terminal.
func (c *Console) write(text string, fg, bg color.Color) error {
	c.buf.Reset()
	_, _ = c.buf.WriteString("\033[0m")
	_, _ = io.WriteString(&c.buf, c.palette.Block(nrgba(bg)))
	_, _ = io.WriteString(&c.buf, c.palette.Block(nrgba(fg)))
	_, _ = c.buf.WriteString("\033[0m ")
	if c.online {
		_, _ = c.buf.WriteString("(online) ")
	}
	_, _ = c.buf.WriteString(text)
	_, _ = c.buf.WriteString("\n")
	frame := c.buf.String()
	if frame == c.last {
		return nil
	}
	c.last = frame
	_, err := c.buf.WriteTo(c.w)
	return err
}

func nrgba(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
