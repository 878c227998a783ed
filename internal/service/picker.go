package service

import "math/rand/v2"

// Picker selects one value from a non-empty candidate list.
type Picker interface {
	Pick(candidates []string) string
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(candidates []string) string

// Pick calls f.
func (f PickerFunc) Pick(candidates []string) string {
	return f(candidates)
}

type randomPicker struct{}

// NewRandomPicker returns a Picker choosing uniformly at random.
func NewRandomPicker() Picker {
	return randomPicker{}
}

func (randomPicker) Pick(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rand.IntN(len(candidates))]
}

// FirstPicker always returns the first candidate.
var FirstPicker Picker = PickerFunc(func(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
})

// DefaultResolutionNotes are the canned remediation narratives used when the
// scheduler closes a ticket.
var DefaultResolutionNotes = []string{
	"Occupants were redirected to an adjacent room and the booking limit was corrected.",
	"Meeting organizer was contacted and attendance reduced to within room capacity.",
	"Ventilation was increased and air quality returned to normal levels.",
	"Room was temporarily closed and the overflow moved to a larger space.",
	"Facilities staff verified the occupancy sensor and recalibrated it after a false reading.",
}
