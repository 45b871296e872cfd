package action

// Action represents something the user asked the debugger to do
type Action int

const (
	// Execution control
	Step Action = iota
	Continue
	Stop
	SoftReset
	HardReset

	// Memory
	ToggleFullMemory
	ForceMemoryUpdate
	InjectDemo
	Refresh
	PokeIncrement
	PokeDecrement

	// Breakpoints at the selected address
	AddBreakpointPC
	AddBreakpointMemory
	AddBreakpointIO
	RemoveBreakpoint

	// Selection
	SelectUp
	SelectDown
	SelectLeft
	SelectRight
	SelectPageUp
	SelectPageDown
	SelectPC

	// View
	KeyboardCapture
	LogLevelIncrease
	LogLevelDecrease
	Quit
)

// Category groups actions by what they affect
type Category int

const (
	CategoryExecution Category = iota
	CategoryMemory
	CategoryBreakpoint
	CategorySelection
	CategoryView
)

// Info describes an action
type Info struct {
	Description string
	Category    Category
	// Debounce marks actions that must not fire again on key repeat.
	Debounce bool
}

var infos = map[Action]Info{
	Step:                {"Step one instruction", CategoryExecution, false},
	Continue:            {"Continue execution", CategoryExecution, true},
	Stop:                {"Stop execution", CategoryExecution, true},
	SoftReset:           {"Soft reset", CategoryExecution, true},
	HardReset:           {"Hard reset", CategoryExecution, true},
	ToggleFullMemory:    {"Toggle full memory updates", CategoryMemory, true},
	ForceMemoryUpdate:   {"Force memory update", CategoryMemory, true},
	InjectDemo:          {"Inject demo program", CategoryMemory, true},
	Refresh:             {"Refresh state", CategoryMemory, true},
	PokeIncrement:       {"Increment selected byte", CategoryMemory, false},
	PokeDecrement:       {"Decrement selected byte", CategoryMemory, false},
	AddBreakpointPC:     {"Add program counter breakpoint", CategoryBreakpoint, true},
	AddBreakpointMemory: {"Add memory watch", CategoryBreakpoint, true},
	AddBreakpointIO:     {"Add I/O watch", CategoryBreakpoint, true},
	RemoveBreakpoint:    {"Remove breakpoint", CategoryBreakpoint, true},
	SelectUp:            {"Select previous row", CategorySelection, false},
	SelectDown:          {"Select next row", CategorySelection, false},
	SelectLeft:          {"Select previous byte", CategorySelection, false},
	SelectRight:         {"Select next byte", CategorySelection, false},
	SelectPageUp:        {"Select previous page", CategorySelection, false},
	SelectPageDown:      {"Select next page", CategorySelection, false},
	SelectPC:            {"Select program counter", CategorySelection, false},
	KeyboardCapture:     {"Toggle keyboard capture", CategoryView, true},
	LogLevelIncrease:    {"Show more logs", CategoryView, false},
	LogLevelDecrease:    {"Show fewer logs", CategoryView, false},
	Quit:                {"Quit", CategoryView, false},
}

// GetInfo returns the description of an action
func GetInfo(act Action) Info {
	if info, ok := infos[act]; ok {
		return info
	}
	return Info{Description: "Unknown", Category: CategoryView}
}
