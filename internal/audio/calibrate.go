package audio

import (
	"math"

	"github.com/audiotutor/server/domain"
)

const (
	// baseEnergyThreshold mirrors the recognizer's stock silence threshold
	// in int16 RMS units.
	baseEnergyThreshold = 300.0

	// calibrationWindow is the leading slice of the clip sampled for
	// ambient noise, in seconds.
	calibrationWindow = 0.2

	// ambientMargin scales the measured noise floor so speech has to rise
	// meaningfully above it.
	ambientMargin = 1.5
)

// CalibrateThreshold measures the ambient noise level over the clip's
// leading window and returns the adjusted energy threshold. Purely local
// signal processing, no network involved.
func CalibrateThreshold(clip domain.PCMClip) float64 {
	window := int(calibrationWindow * float64(clip.SampleRate))
	if window > len(clip.Samples) {
		window = len(clip.Samples)
	}
	if window == 0 {
		return baseEnergyThreshold
	}

	ambient := rms(clip.Samples[:window]) * ambientMargin
	if ambient < baseEnergyThreshold {
		return baseEnergyThreshold
	}
	return ambient
}

// IsSilence reports whether the clip past the calibration window never rises
// above the threshold. Silent clips are gated before recognition so they
// resolve to unintelligible without a service round trip.
func IsSilence(clip domain.PCMClip, threshold float64) bool {
	window := int(calibrationWindow * float64(clip.SampleRate))
	if window >= len(clip.Samples) {
		return true
	}
	return rms(clip.Samples[window:]) < threshold
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var energy float64
	for _, s := range samples {
		energy += float64(s) * float64(s)
	}
	return math.Sqrt(energy / float64(len(samples)))
}
