/*
Package enhance decides how a cover should be corrected before
dithering.

Strategy selection is a pure function of the image statistics. A gamma
lift is reserved for genuinely dark covers: local contrast alone on a
dark image amplifies noise without recovering shadow detail. Flat but
well-exposed covers only get a histogram stretch, avoiding needless
midtone shifts.
*/
package enhance

import "github.com/CrankBoyHQ/crankboy-covers/analysis"

// Params holds the strategy-selection thresholds and the enhancement
// parameters the strategies are built from.
type Params struct {
	// DarkMean is the mean luminance at or below which a cover counts
	// as dark.
	DarkMean float64

	// LowContrastStdDev is the luminance deviation at or below which a
	// cover counts as flat.
	LowContrastStdDev float64

	// Gamma applied by the dark-rescue strategy; values above 1 lift
	// midtones.
	Gamma float64

	// Local contrast neighborhood radius in pixels and strength in
	// percent.
	LocalRadius   float64
	LocalStrength float64
}

// DefaultParams returns the tuning used for production cover runs.
func DefaultParams() Params {
	return Params{
		DarkMean:          0.25,
		LowContrastStdDev: 0.15,
		Gamma:             1.8,
		LocalRadius:       20,
		LocalStrength:     20,
	}
}

// Kind tags the three fixed strategies.
type Kind int

const (
	None Kind = iota
	DarkRescue
	LocalEnhance
)

// Op names a single enhancement operation.
type Op int

const (
	OpGamma Op = iota
	OpNormalize
	OpLocalContrast
)

// Step is one enhancement operation; only the fields relevant to its
// Op are set.
type Step struct {
	Op       Op
	Gamma    float64
	Radius   float64
	Strength float64
}

// Strategy is an ordered list of enhancement steps plus a label for
// progress output. Strategies are data; the transformer executes them.
type Strategy struct {
	Kind  Kind
	Label string
	Steps []Step
}

// Select maps image statistics to one of the three fixed strategies.
// The first matching branch wins: dark covers are rescued regardless
// of their contrast.
func Select(stats analysis.Statistics, p Params) Strategy {
	switch {
	case stats.Mean <= p.DarkMean:
		return Strategy{
			Kind:  DarkRescue,
			Label: "Dark Image Rescue",
			Steps: []Step{
				{Op: OpGamma, Gamma: p.Gamma},
				{Op: OpNormalize},
				{Op: OpLocalContrast, Radius: p.LocalRadius, Strength: p.LocalStrength},
			},
		}
	case stats.StdDev <= p.LowContrastStdDev:
		return Strategy{
			Kind:  LocalEnhance,
			Label: "Local Enhance",
			Steps: []Step{
				{Op: OpNormalize},
				{Op: OpLocalContrast, Radius: p.LocalRadius, Strength: p.LocalStrength},
			},
		}
	default:
		return Strategy{
			Kind:  None,
			Label: "None",
		}
	}
}
