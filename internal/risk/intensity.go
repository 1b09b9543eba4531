package risk

import "github.com/volcanowatch/backend/internal/domain"

// accelerationScale converts the raw vibration unit to g
const accelerationScale = 50

type intensityStep struct {
	upper float64
	domain.SeismicIntensity
}

// intensityLadder is ordered by ascending upper bound (exclusive)
var intensityLadder = []intensityStep{
	{0.0017, domain.SeismicIntensity{Intensity: 1, Description: "Not felt"}},
	{0.014, domain.SeismicIntensity{Intensity: 2.5, Description: "Weak"}},
	{0.039, domain.SeismicIntensity{Intensity: 4, Description: "Light"}},
	{0.092, domain.SeismicIntensity{Intensity: 5, Description: "Moderate"}},
	{0.18, domain.SeismicIntensity{Intensity: 6, Description: "Strong"}},
	{0.34, domain.SeismicIntensity{Intensity: 7, Description: "Very strong"}},
	{0.65, domain.SeismicIntensity{Intensity: 8, Description: "Severe"}},
	{1.24, domain.SeismicIntensity{Intensity: 9, Description: "Violent"}},
}

var extremeIntensity = domain.SeismicIntensity{Intensity: 10, Description: "Extreme"}

// AccelerationToIntensity maps a raw acceleration to the discrete intensity scale
func AccelerationToIntensity(acceleration float64) domain.SeismicIntensity {
	g := acceleration / accelerationScale
	for _, step := range intensityLadder {
		if g < step.upper {
			return step.SeismicIntensity
		}
	}
	return extremeIntensity
}
