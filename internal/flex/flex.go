// Package flex turns raw flex-sensor ADC readings into "bent" flags.
package flex

// DefaultThreshold is the ADC reading at or below which a finger counts as
// bent. It is tuned per glove; units seen so far sit between 1300 and 1700.
const DefaultThreshold int32 = 1700

// NumSensors is the number of flex sensors on the glove (thumb, index, ring).
const NumSensors = 3

// Classifier compares readings against a fixed threshold. Readings are not
// smoothed so that gestures register with minimum latency.
type Classifier struct {
	Threshold int32
}

// NewClassifier returns a classifier using threshold as given. A threshold
// of 0 is honoured: only non-positive readings count as bent.
func NewClassifier(threshold int32) Classifier {
	return Classifier{Threshold: threshold}
}

// IsBent reports whether raw is at or below the threshold.
func (c Classifier) IsBent(raw int32) bool {
	return raw <= c.Threshold
}

// ClassifyAll classifies the three sensors independently.
func (c Classifier) ClassifyAll(raw [NumSensors]int32) [NumSensors]bool {
	var out [NumSensors]bool
	for i, r := range raw {
		out[i] = c.IsBent(r)
	}
	return out
}
