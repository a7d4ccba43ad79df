// Package alert maps a CO2 concentration to the colours it is shown in.
package alert

import (
	"image/color"

	"github.com/ericogr/co2-monitor/pkg/display"
)

// Tier is the severity of a concentration.
type Tier int

const (
	Normal Tier = iota
	Warning
	Critical
)

func (t Tier) String() string {
	switch t {
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	}
	return "normal"
}

// Thresholds in ppm.
type Thresholds struct {
	Warning  int
	Critical int
	Blink    int
}

// Style is how a reading is rendered.
type Style struct {
	Tier  Tier
	Blink bool
	FG    color.Color
	BG    color.Color
}

// blinkPeriod is in milliseconds; the first half of each period is inverted.
const blinkPeriod = 2000

// Classify returns the tier and colours for ppm. Above the blink threshold
// the colours are swapped during the first half of every two seconds of
// nowMillis, which gives a 1 Hz blink when sampled on each refresh.
func Classify(ppm int, th Thresholds, nowMillis uint32) Style {
	s := Style{Tier: Normal, FG: display.Green, BG: display.Black}
	switch {
	case ppm >= th.Critical:
		s = Style{Tier: Critical, FG: display.White, BG: display.Red}
	case ppm >= th.Warning:
		s = Style{Tier: Warning, FG: display.Black, BG: display.Yellow}
	}
	if ppm >= th.Blink && nowMillis%blinkPeriod < blinkPeriod/2 {
		s.Blink = true
		s.FG, s.BG = s.BG, s.FG
	}
	return s
}
