package runtime

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"spl/internal/diag"
)

// registerBuiltins installs the native library into the global frame. The
// bindings are constant, so scripts cannot rebind them, and the checker's
// no-shadowing rule keeps user declarations off these names entirely.
func registerBuiltins(ip *Interp) {
	for _, fn := range []*NativeFunction{
		{name: "exit", arity: 1, handler: builtinExit},
		{name: "echo", arity: 1, handler: builtinEcho},
		{name: "strlen", arity: 1, handler: builtinStrlen},
		{name: "string", arity: 1, handler: builtinString},
		{name: "number", arity: 1, handler: builtinNumber},
		{name: "bool", arity: 1, handler: builtinBool},
	} {
		ip.global.Define(fn.name, &Binding{Value: FuncValue(fn), Const: true, DeclKind: ValFunc})
	}
}

// builtinExit does not terminate the process itself; it unwinds as a
// *diag.ExitError so the caller owns the process boundary.
func builtinExit(ip *Interp, args []Value, at errPos) (Value, bool, error) {
	if args[0].Kind != ValNumber {
		return Value{}, false, ip.errf(diag.TypeMismatch, at, "exit expects a number, found %s", args[0].Kind)
	}
	return Value{}, false, &diag.ExitError{Code: int(args[0].Num)}
}

func builtinEcho(ip *Interp, args []Value, at errPos) (Value, bool, error) {
	if args[0].Kind == ValFunc {
		return Value{}, false, ip.errf(diag.TypeMismatch, at, "echo cannot print a function")
	}
	if _, err := fmt.Fprintln(ip.stdout, args[0].Render()); err != nil {
		return Value{}, false, err
	}
	return Value{}, false, nil
}

func builtinStrlen(ip *Interp, args []Value, at errPos) (Value, bool, error) {
	if args[0].Kind != ValString {
		return Value{}, false, ip.errf(diag.TypeMismatch, at, "strlen expects a string, found %s", args[0].Kind)
	}
	return NumberValue(float64(utf8.RuneCountInString(args[0].Str))), true, nil
}

func builtinString(ip *Interp, args []Value, at errPos) (Value, bool, error) {
	if args[0].Kind == ValFunc {
		return Value{}, false, ip.errf(diag.TypeMismatch, at, "string cannot convert a function")
	}
	return StringValue(args[0].Render()), true, nil
}

func builtinNumber(ip *Interp, args []Value, at errPos) (Value, bool, error) {
	if args[0].Kind != ValString {
		return Value{}, false, ip.errf(diag.TypeMismatch, at, "number expects a string, found %s", args[0].Kind)
	}
	// Surrounding whitespace is forgiven; the digits themselves are not.
	f, err := strconv.ParseFloat(strings.TrimSpace(args[0].Str), 64)
	if err != nil {
		return Value{}, false, ip.errf(diag.NumberParse, at, "cannot parse %q as a number", args[0].Str)
	}
	return NumberValue(f), true, nil
}

func builtinBool(ip *Interp, args []Value, at errPos) (Value, bool, error) {
	if args[0].Kind != ValString {
		return Value{}, false, ip.errf(diag.TypeMismatch, at, "bool expects a string, found %s", args[0].Kind)
	}
	switch {
	case strings.EqualFold(args[0].Str, "true"):
		return BoolValue(true), true, nil
	case strings.EqualFold(args[0].Str, "false"):
		return BoolValue(false), true, nil
	default:
		return Value{}, false, ip.errf(diag.BoolParse, at, "cannot parse %q as a bool", args[0].Str)
	}
}
