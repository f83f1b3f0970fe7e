package booking

import (
	"math"

	"github.com/prameswara/medibook/internal/domain"
)

// CalculateFee is a pure function of the inputs: the provider's base
// hourly rate scaled linearly by duration and the modality multiplier.
// Rounded to the nearest whole currency unit, ties rounding up. The result
// is frozen onto the booking at creation and never recomputed.
func CalculateFee(baseHourlyRate int64, durationMinutes int, modality domain.Modality, remoteMultiplier float64) int64 {
	multiplier := 1.0
	if modality == domain.ModalityRemote {
		multiplier = remoteMultiplier
	}
	raw := float64(baseHourlyRate) * float64(durationMinutes) / 60.0 * multiplier
	return int64(math.Floor(raw + 0.5))
}
