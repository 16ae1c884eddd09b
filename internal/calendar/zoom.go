package calendar

import (
	"math"

	"github.com/tgienger/pulse/internal/prefs"
)

// wheelStep is the zoom factor of one wheel notch
const wheelStep = 1.10

// Zoom holds the vertical scale of the grid
type Zoom struct {
	PixelsPerHour float64

	pinchFrom float64
}

func clampZoom(pph float64) float64 {
	return min(max(pph, prefs.MinPixelsPerHour), prefs.MaxPixelsPerHour)
}

// Wheel zooms by 10% per notch, in for positive notches. Without the
// modifier key the wheel scrolls instead and nothing changes.
func (z *Zoom) Wheel(notches float64, modifier bool) bool {
	if !modifier || notches == 0 {
		return false
	}
	return z.set(z.PixelsPerHour * math.Pow(wheelStep, notches))
}

// StartPinch remembers the scale at the start of a two finger pinch
func (z *Zoom) StartPinch() {
	z.pinchFrom = z.PixelsPerHour
}

// Pinch scales proportionally to the finger distance since the pinch started
func (z *Zoom) Pinch(startDist, dist float64) bool {
	if startDist <= 0 || dist <= 0 {
		return false
	}
	if z.pinchFrom == 0 {
		z.pinchFrom = z.PixelsPerHour
	}
	return z.set(z.pinchFrom * dist / startDist)
}

func (z *Zoom) set(pph float64) bool {
	pph = clampZoom(pph)
	if pph == z.PixelsPerHour {
		return false
	}
	z.PixelsPerHour = pph
	return true
}
