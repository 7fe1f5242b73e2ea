package chart

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Blue is the default colour of single-series charts.
var Blue = color.RGBA{R: 31, G: 119, B: 180, A: 255}

var palette = []color.RGBA{
	Blue,
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
	{R: 227, G: 119, B: 194, A: 255},
	{R: 127, G: 127, B: 127, A: 255},
}

// ParseHex parses a "#rrggbb" or "#rgb" colour.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// SeriesColor returns the colour of the i-th series: its ColorMap entry when
// present and valid, otherwise the i-th palette colour.
func (s Spec) SeriesColor(i int) color.RGBA {
	if i < len(s.Series) {
		if hex, ok := s.ColorMap[s.Series[i].Name]; ok {
			if c, err := ParseHex(hex); err == nil {
				return c
			}
		}
	}
	return palette[i%len(palette)]
}
