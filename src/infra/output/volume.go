package output

// Volume levels are exponents of two applied to every sample.
const (
	MinVolume  = -10.0
	MaxVolume  = 2.0
	VolumeStep = 0.5
)
