package tray

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/pink-tools/se-player/internal/output"
)

const barWidth = 8

var volumeSteps = []int{0, 25, 50, 75, 100}

// bar renders fraction as a fixed-width progress bar.
func bar(fraction float64, width int) string {
	switch {
	case math.IsNaN(fraction) || fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}

func soundTitle(label, progress string) string {
	if progress == "" {
		return label
	}
	return label + "  " + progress
}

func volumeTitle(p int) string {
	if p == 0 {
		return "0% (silent)"
	}
	return strconv.Itoa(p) + "%"
}

// nearestStep picks the volume menu entry closest to p.
func nearestStep(p int) int {
	best := volumeSteps[0]
	for _, s := range volumeSteps {
		if abs(s-p) < abs(best-p) {
			best = s
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// selectionApplied reports whether a device selection took effect. Live
// sounds that could not move do not undo it: new sounds still use the device.
func selectionApplied(err error) bool {
	return !errors.Is(err, output.ErrUnknownDevice)
}
