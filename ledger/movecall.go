package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ArgKind is the kind of a Move call argument.
type ArgKind int

const (
	ArgPureString ArgKind = iota
	ArgPureAddress
	ArgObject
)

func (k ArgKind) String() string {
	switch k {
	case ArgPureString:
		return "pure_string"
	case ArgPureAddress:
		return "pure_address"
	case ArgObject:
		return "object"
	default:
		return "unknown"
	}
}

// Arg is a typed argument to a Move entry point.
type Arg struct {
	Kind  ArgKind
	Value string
}

func PureString(s string) Arg  { return Arg{Kind: ArgPureString, Value: s} }
func PureAddress(a string) Arg { return Arg{Kind: ArgPureAddress, Value: a} }
func Object(id string) Arg     { return Arg{Kind: ArgObject, Value: id} }

// MoveCall is a single entry point invocation handed to a wallet for
// signing and execution.
type MoveCall struct {
	Package   string
	Module    string
	Function  string
	Arguments []Arg
}

// Target returns the fully qualified entry point, package::module::function.
func (c *MoveCall) Target() string {
	return fmt.Sprintf("%s::%s::%s", c.Package, c.Module, c.Function)
}

var ErrEmptyArgument = errors.New("empty argument")

// Validate checks that the call names a target and that address and object
// arguments are present. Pure strings may be empty.
func (c *MoveCall) Validate() error {
	if c.Package == "" || c.Module == "" || c.Function == "" {
		return fmt.Errorf("incomplete target %q", c.Target())
	}
	for i, a := range c.Arguments {
		if a.Kind == ArgPureString {
			continue
		}
		if strings.TrimSpace(a.Value) == "" {
			return fmt.Errorf("%s argument %d (%s): %w", c.Function, i, a.Kind, ErrEmptyArgument)
		}
	}
	return nil
}
