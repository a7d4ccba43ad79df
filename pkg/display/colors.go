package display

import "image/color"

// Palette of the monitor, matching the RGB565 TFT colour set.
var (
	Black   = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	White   = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	Red     = color.RGBA{0xFF, 0x00, 0x00, 0xFF}
	Green   = color.RGBA{0x00, 0xFF, 0x00, 0xFF}
	Blue    = color.RGBA{0x00, 0x00, 0xFF, 0xFF}
	Yellow  = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	Magenta = color.RGBA{0xFF, 0x00, 0xFF, 0xFF}
)
