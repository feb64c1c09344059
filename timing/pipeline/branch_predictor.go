package pipeline

// PredictorPolicy selects the branch prediction strategy.
type PredictorPolicy int

const (
	// AlwaysTaken predicts every branch as taken.
	AlwaysTaken PredictorPolicy = iota
	// AlwaysNotTaken predicts every branch as not taken.
	AlwaysNotTaken
	// Bimodal indexes a table of 2-bit saturating counters by PC.
	Bimodal
	// GShare indexes the counter table by PC XOR global branch history.
	GShare
)

// String returns the policy name.
func (p PredictorPolicy) String() string {
	switch p {
	case AlwaysTaken:
		return "always-taken"
	case AlwaysNotTaken:
		return "always-not-taken"
	case Bimodal:
		return "bimodal"
	case GShare:
		return "gshare"
	default:
		return "unknown"
	}
}

// PredictorConfig holds configuration for the branch predictor.
type PredictorConfig struct {
	// Policy selects the prediction strategy. Default is Bimodal.
	Policy PredictorPolicy
	// PHTSize is the number of entries in the Pattern History Table.
	// Default is 4096.
	PHTSize uint32
	// BHRBits is the number of global history bits used by GShare.
	// Default is 12.
	BHRBits uint32
}

// DefaultPredictorConfig returns a default configuration.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		Policy:  Bimodal,
		PHTSize: 4096,
		BHRBits: 12,
	}
}

// PredictorStats holds statistics for the branch predictor.
type PredictorStats struct {
	// Predictions is the total number of branch predictions made.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s PredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// BranchPredictor predicts conditional branch outcomes. The table-driven
// policies share a Pattern History Table of 2-bit saturating counters
// (0=strongly not taken, 1=weakly not taken, 2=weakly taken,
// 3=strongly taken).
type BranchPredictor struct {
	policy  PredictorPolicy
	phtSize uint32
	bhrBits uint32

	// Pattern History Table of 2-bit saturating counters.
	pht []uint8

	// Global branch history register, used by GShare.
	bhr uint32

	stats PredictorStats
}

// NewBranchPredictor creates a branch predictor with the given configuration.
func NewBranchPredictor(config PredictorConfig) *BranchPredictor {
	phtSize := config.PHTSize
	if phtSize == 0 {
		phtSize = 4096
	}
	bhrBits := config.BHRBits
	if bhrBits == 0 {
		bhrBits = 12
	}

	bp := &BranchPredictor{
		policy:  config.Policy,
		phtSize: phtSize,
		bhrBits: bhrBits,
		pht:     make([]uint8, phtSize),
	}

	// Start at weakly taken.
	for i := range bp.pht {
		bp.pht[i] = 2
	}

	return bp
}

// Policy returns the configured prediction policy.
func (bp *BranchPredictor) Policy() PredictorPolicy {
	return bp.policy
}

// phtIndex computes the counter table index for a given PC.
func (bp *BranchPredictor) phtIndex(pc uint64) uint32 {
	switch bp.policy {
	case GShare:
		history := bp.bhr & ((1 << bp.bhrBits) - 1)
		return (uint32(pc) ^ history) % bp.phtSize
	default:
		return uint32(pc % uint64(bp.phtSize))
	}
}

// Predict makes a taken/not-taken prediction for the branch at pc.
func (bp *BranchPredictor) Predict(pc uint64) bool {
	bp.stats.Predictions++

	switch bp.policy {
	case AlwaysTaken:
		return true
	case AlwaysNotTaken:
		return false
	default:
		return bp.pht[bp.phtIndex(pc)] >= 2
	}
}

// Update trains the predictor with the actual branch outcome. The predicted
// argument is the prediction that was made for this branch, so accuracy
// accounting stays consistent with whatever table state produced it.
func (bp *BranchPredictor) Update(pc uint64, taken, predicted bool) {
	if predicted == taken {
		bp.stats.Correct++
	}

	if bp.policy == AlwaysTaken || bp.policy == AlwaysNotTaken {
		return
	}

	idx := bp.phtIndex(pc)
	counter := bp.pht[idx]
	if taken {
		if counter < 3 {
			bp.pht[idx] = counter + 1
		}
	} else {
		if counter > 0 {
			bp.pht[idx] = counter - 1
		}
	}

	if bp.policy == GShare {
		bit := uint32(0)
		if taken {
			bit = 1
		}
		bp.bhr = ((bp.bhr << 1) | bit) & ((1 << bp.bhrBits) - 1)
	}
}

// Stats returns the branch predictor statistics.
func (bp *BranchPredictor) Stats() PredictorStats {
	return bp.stats
}

// Reset clears all predictor state and statistics.
func (bp *BranchPredictor) Reset() {
	for i := range bp.pht {
		bp.pht[i] = 2
	}
	bp.bhr = 0
	bp.stats = PredictorStats{}
}
