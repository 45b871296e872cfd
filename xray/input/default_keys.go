package input

import "github.com/valerio/go-xray/xray/input/action"

// DefaultKeyMap provides default key mappings that work across backends.
var DefaultKeyMap = map[string]action.Action{
	// Execution
	"1": action.Step,
	"2": action.Continue,
	"3": action.Stop,
	"4": action.SoftReset,
	"$": action.HardReset,

	// Memory
	"m": action.ToggleFullMemory,
	"r": action.ForceMemoryUpdate,
	"i": action.InjectDemo,
	"R": action.Refresh,
	"]": action.PokeIncrement,
	"[": action.PokeDecrement,

	// Breakpoints
	"b": action.AddBreakpointPC,
	"w": action.AddBreakpointMemory,
	"o": action.AddBreakpointIO,
	"x": action.RemoveBreakpoint,

	// Selection
	"Up":       action.SelectUp,
	"Down":     action.SelectDown,
	"Left":     action.SelectLeft,
	"Right":    action.SelectRight,
	"PageUp":   action.SelectPageUp,
	"PageDown": action.SelectPageDown,
	"p":        action.SelectPC,

	// View
	"Tab":    action.KeyboardCapture,
	"+":      action.LogLevelIncrease,
	"=":      action.LogLevelIncrease, // Alternative without shift
	"-":      action.LogLevelDecrease,
	"_":      action.LogLevelDecrease, // Alternative with shift
	"Escape": action.Quit,
	"q":      action.Quit,
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
