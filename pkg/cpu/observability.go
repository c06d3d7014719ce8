package cpu

// ForwardInfo names the latch a value was bypassed from, so a consumer
// instruction in EX didn't need to wait for writeback.
type ForwardInfo struct {
	Source string // "EX_MEM" or "MEM_WB"
	Reg    uint16
	Value  uint16
}

// StallInfo describes why decode asserted a stall this cycle.
type StallInfo struct {
	Kind        string
	WaitingReg  uint16
	WaitingFor  string // disassembly of the instruction being waited on
	BlockedInstr string // disassembly of the stalled instruction
	Reason      string
}

// ControlHazard records a taken branch or jump resolved in decode: what
// was speculatively fetched and had to be discarded, and where control
// actually transferred to.
type ControlHazard struct {
	Kind               string // "Branch" or "Jump"
	FlushedInstruction string
	TargetAddress      int
	Reason             string
}

// MemoryWarning flags a data-memory read from an address never written.
type MemoryWarning struct {
	Address uint16
	Message string
}

// StageEntry names one instruction instance (by fetch address and raw
// word) visible in a pipeline stage during one cycle's history snapshot.
type StageEntry struct {
	PC   int
	Word uint16
}

// CycleSnapshot names, for one cycle, the instruction instance (if any)
// visible in each of the five stages. A nil field means that stage held a
// bubble this cycle; a nil IF or WB can also mean the instruction there was
// already recorded for that stage in an earlier cycle.
type CycleSnapshot struct {
	Cycle              int
	IF, ID, EX, MEM, WB *StageEntry
}

// ForwardRecord is one cycle's forwarding activity, appended to
// ForwardHistory whenever at least one of ForwardA/ForwardB fired.
type ForwardRecord struct {
	Cycle    int
	ForwardA *ForwardInfo
	ForwardB *ForwardInfo
}

// SeenKey identifies one instruction instance by its fetch address and
// raw word, used to deduplicate PipelineHistory's IF/WB entries when a
// stalled instruction occupies a stage across multiple cycles.
type SeenKey struct {
	PC   int
	Word uint16
}

// Performance holds the derived, cumulative efficiency metrics exposed
// alongside a state snapshot.
type Performance struct {
	Cycles        int
	Instructions  int
	CPI           float64
	StallCycles   int
	StallRate     float64
	ForwardCycles int
	ForwardRate   float64
	FlushCount    int
}
