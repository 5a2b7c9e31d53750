package domain

import (
	"fmt"
	"strings"
)

// Color is one of the fixed group palette entries, stored as its hex value.
type Color string

const (
	ColorRed    Color = "#FF6B6B"
	ColorOrange Color = "#FFA500"
	ColorYellow Color = "#FFD700"
	ColorGreen  Color = "#4CAF50"
	ColorBlue   Color = "#2196F3"
	ColorPurple Color = "#9C27B0"
	ColorPink   Color = "#E91E63"
	ColorGray   Color = "#9E9E9E"

	DefaultColor = ColorBlue
)

var colorNames = map[string]Color{
	"red":    ColorRed,
	"orange": ColorOrange,
	"yellow": ColorYellow,
	"green":  ColorGreen,
	"blue":   ColorBlue,
	"purple": ColorPurple,
	"pink":   ColorPink,
	"gray":   ColorGray,
}

// Palette returns the colors in menu order.
func Palette() []Color {
	return []Color{ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBlue, ColorPurple, ColorPink, ColorGray}
}

// ParseColor accepts a palette name ("Blue") or hex value ("#2196F3").
// An empty string yields DefaultColor.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultColor, nil
	}
	if c, ok := colorNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	for _, c := range Palette() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("color %q is not in the palette: %w", s, ErrValidation)
}
