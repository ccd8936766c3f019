package sound

import (
	"math"
	"time"
)

// fadeOutSlope is the minimum RMS decrease per window.
const fadeOutSlope = 0.001

// HasFadeOut reports whether the loudness of the last second keeps
// decreasing. Inputs shorter than the analysis window never fade out.
func (a *Analyzer) HasFadeOut() bool {
	rmsWindow := 100 * time.Millisecond
	fadeOutWindow := 1 * time.Second
	analysisWindow := int(fadeOutWindow / rmsWindow)
	rms := a.RMS(rmsWindow)
	if len(rms) < analysisWindow {
		return false
	}
	rms = rms[len(rms)-analysisWindow:]

	// Count windows louder than the previous one
	var count int
	for i := 1; i < len(rms); i++ {
		if rms[i]-rms[i-1] > 0.001 {
			count++
		}
	}
	if count > 1 {
		return false
	}
	x := make([]float64, len(rms))
	for i := range x {
		x[i] = float64(i)
	}
	slope, _ := linearRegression(x, rms)
	return slope < -fadeOutSlope
}

func linearRegression(x, y []float64) (slope, intercept float64) {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN(), math.NaN()
	}

	var sumX, sumY, sumXY, sumXX float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}

	n := float64(len(x))
	slope = (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	intercept = (sumY - slope*sumX) / n

	return slope, intercept
}
