package pipeline

import (
	"github.com/VIKASNARASIMHA1/Spectre/insts"
)

// HazardUnit detects read-after-write hazards between an instruction about
// to be decoded and instructions still in flight downstream.
type HazardUnit struct{}

// NewHazardUnit creates a hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectDataHazard reports whether either source register is still the
// destination of an instruction in one of the downstream stage registers.
// The scan covers execute through commit, so a value is considered in
// flight until its producer has drained out of the pipeline entirely.
func (h *HazardUnit) DetectDataHazard(
	downstream []StageRegister,
	src1, src2 uint8,
) bool {
	for i := range downstream {
		r := &downstream[i]
		if r.Op == insts.OpNop || r.Bubble || r.DestReg == insts.NoReg {
			continue
		}
		if src1 != insts.NoReg && r.DestReg == src1 {
			return true
		}
		if src2 != insts.NoReg && r.DestReg == src2 {
			return true
		}
	}
	return false
}
