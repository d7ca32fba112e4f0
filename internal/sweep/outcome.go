package sweep

import (
	"math/rand"
	"time"

	"github.com/signalsfoundry/sweep-simulator/model"
)

// OutcomeFunc decides the simulated measurement result for one entity.
// It is only consulted for measurable entities; blind holes and tie-rods
// keep their preset status.
type OutcomeFunc func(e model.Entity) model.BaseStatus

// weightedOutcome returns the default simulated outcome: a draw that
// qualifies with probability p and marks defective otherwise.
func weightedOutcome(rng *rand.Rand, p float64) OutcomeFunc {
	return func(model.Entity) model.BaseStatus {
		if rng.Float64() < p {
			return model.StatusQualified
		}
		return model.StatusDefective
	}
}

// newRNG builds the scheduler's RNG from the configured seed.
func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// measurable reports whether an entity's result is produced by the
// outcome function. Blind holes and tie-rod positions are visited by the
// sweep but never measured.
func measurable(s model.BaseStatus) bool {
	return s != model.StatusBlind && s != model.StatusTieRod
}
