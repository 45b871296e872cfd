package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned by ParseCommand for unrecognised actions.
var ErrUnknownCommand = errors.New("unknown command")

// wirePrefix namespaces every command sent to the system under test.
const wirePrefix = "action/"

// Command is an outbound control command in "action/args" form.
type Command string

// Wire returns the text frame sent over the transport.
func (c Command) Wire() string {
	return wirePrefix + string(c)
}

// Name returns the action without its arguments.
func (c Command) Name() string {
	name, _, _ := strings.Cut(string(c), "/")
	return name
}

// Args returns the slash separated arguments.
func (c Command) Args() []string {
	_, args, ok := strings.Cut(string(c), "/")
	if !ok {
		return nil
	}
	return strings.Split(args, "/")
}

const (
	Step              Command = "step"
	Continue          Command = "continue"
	Stop              Command = "stop"
	SoftReset         Command = "soft_reset"
	HardReset         Command = "hard_reset"
	ForceMemoryUpdate Command = "get_memory/force_update"
	InjectDemo        Command = "inject_demo"
	Refresh           Command = "refresh"
)

// GetMemory requests length bytes starting at start.
func GetMemory(start, length int) Command {
	return Command(fmt.Sprintf("get_memory/%d/%d", start, length))
}

// AddBreakpoint registers a breakpoint of the given type.
func AddBreakpoint(t BreakpointType, address uint16) Command {
	return Command(fmt.Sprintf("add_breakpoint/%d/%d", int(t), address))
}

// RemoveBreakpoint removes the breakpoint with the given id.
func RemoveBreakpoint(id int) Command {
	return Command(fmt.Sprintf("remove_breakpoint/%d", id))
}

// SetMemory pokes a single byte.
func SetMemory(address uint16, value uint8) Command {
	return Command(fmt.Sprintf("set_memory/%d/%d", address, value))
}

// KeyEvent injects a key press or release into the system under test.
func KeyEvent(down, shift bool, key string) Command {
	return Command(fmt.Sprintf("key_event/%s/%s/%s", flag(down), flag(shift), key))
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// argCounts lists how many arguments each action takes.
var argCounts = map[string]int{
	"step":              0,
	"continue":          0,
	"stop":              0,
	"soft_reset":        0,
	"hard_reset":        0,
	"inject_demo":       0,
	"refresh":           0,
	"get_memory":        2,
	"add_breakpoint":    2,
	"remove_breakpoint": 1,
	"set_memory":        2,
	"key_event":         3,
}

// ParseCommand parses a wire frame as sent by Command.Wire.
func ParseCommand(wire string) (Command, error) {
	body, ok := strings.CutPrefix(wire, wirePrefix)
	if !ok {
		return "", fmt.Errorf("%w: missing %q prefix in %q", ErrUnknownCommand, wirePrefix, wire)
	}

	cmd := Command(body)
	if cmd == ForceMemoryUpdate {
		return cmd, nil
	}

	want, known := argCounts[cmd.Name()]
	if !known {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name())
	}

	args := cmd.Args()
	// the key itself may be "/"
	if cmd.Name() == "key_event" && len(args) > want {
		args = append(args[:want-1], strings.Join(args[want-1:], "/"))
	}
	if len(args) != want {
		return "", fmt.Errorf("%w: %q takes %d arguments, got %d", ErrUnknownCommand, cmd.Name(), want, len(args))
	}
	if cmd.Name() != "key_event" {
		for _, a := range args {
			if _, err := strconv.Atoi(a); err != nil {
				return "", fmt.Errorf("%w: argument %q of %q is not a number", ErrUnknownCommand, a, cmd.Name())
			}
		}
	}
	return cmd, nil
}
