package runtime

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"spl/internal/diag"
	"spl/internal/parser"
)

// runSource executes src against a fresh interpreter and returns whatever
// was echoed. The static checker is deliberately not involved, so these
// tests exercise the evaluator's own safety net.
func runSource(t *testing.T, src string) (string, error) {
	t.Helper()
	prog, err := parser.New("main.spl", src).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	var out bytes.Buffer
	ip := New(WithStdout(&out))
	err = ip.Run(prog)
	return out.String(), err
}

func mustRun(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.New("main.spl", src).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	var out bytes.Buffer
	ip := New(WithStdout(&out))
	if err := ip.Run(prog); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out.String()
}

func assertRuntimeKind(t *testing.T, src string, want diag.Kind) string {
	t.Helper()
	prog, err := parser.New("main.spl", src).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	var out bytes.Buffer
	ip := New(WithStdout(&out))
	err = ip.Run(prog)
	if err == nil {
		t.Fatalf("Run succeeded, want %s", want)
	}
	var de *diag.Error
	if !errors.As(err, &de) || de.Kind != want {
		t.Fatalf("error = %v, want kind %s", err, want)
	}
	return out.String()
}

func TestLoopCountdown(t *testing.T) {
	const src = `
var number x = 10
loop (x > 0) {
  x = x - 1
}
echo(x)
`
	if out := mustRun(t, src); out != "0\n" {
		t.Fatalf("output = %q, want %q", out, "0\n")
	}
}

func TestFunctionCall(t *testing.T) {
	const src = `
func add(number a, number b) {
  return a + b
}
echo(add(2, 3))
`
	if out := mustRun(t, src); out != "5\n" {
		t.Fatalf("output = %q, want %q", out, "5\n")
	}
}

func TestDefaultValues(t *testing.T) {
	const src = `
var number a
var string s
var bool b
echo(a)
echo(s)
echo(b)
`
	if out := mustRun(t, src); out != "0\n\nfalse\n" {
		t.Fatalf("output = %q, want %q", out, "0\n\nfalse\n")
	}
}

func TestNumberRendering(t *testing.T) {
	const src = `
echo(4.5)
echo(9 / 2)
echo(10 / 2)
echo(2 ^ 0.5 * 0)
`
	want := "4.5\n4.5\n5\n0\n"
	if out := mustRun(t, src); out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	const src = `
echo(2 + 3 * 4)
echo((2 + 3) * 4)
echo(2 ^ 3 ^ 2)
echo(2 ^ -1)
echo(7 % 3)
echo(10 - 2 - 3)
`
	want := "14\n20\n512\n0.5\n1\n5\n"
	if out := mustRun(t, src); out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestStringConcat(t *testing.T) {
	const src = `
var string who = "world"
echo("hello " # who # "!")
echo(strlen("héllo"))
`
	want := "hello world!\n5\n"
	if out := mustRun(t, src); out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestCasting(t *testing.T) {
	const src = `
echo(number("3.5") + 1)
echo(number("  42  "))
echo(bool("TRUE"))
echo(bool("False"))
echo(string(4.5) # "!")
echo(string(true))
`
	want := "4.5\n42\ntrue\nfalse\n4.5!\ntrue\n"
	if out := mustRun(t, src); out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestCastingErrors(t *testing.T) {
	assertRuntimeKind(t, `echo(bool("maybe"))`, diag.BoolParse)
	assertRuntimeKind(t, `echo(number("four"))`, diag.NumberParse)
}

func TestCastingRequiresStringArgument(t *testing.T) {
	// number and bool parse strings only; passing a value of the target
	// type through is rejected even without the static checker in front.
	assertRuntimeKind(t, "echo(number(5))", diag.TypeMismatch)
	assertRuntimeKind(t, "echo(bool(true))", diag.TypeMismatch)
}

func TestDivisionByZeroStopsRun(t *testing.T) {
	const src = `
echo("before")
echo(1 / 0)
echo("after")
`
	out := assertRuntimeKind(t, src, diag.DivisionByZero)
	if out != "before\n" {
		t.Fatalf("output = %q, want %q", out, "before\n")
	}
	assertRuntimeKind(t, "echo(5 % 0)", diag.DivisionByZero)
}

func TestConstantReassignment(t *testing.T) {
	assertRuntimeKind(t, "const number c = 1\nc = 2", diag.ConstantReassignment)
}

func TestAssignmentErrors(t *testing.T) {
	assertRuntimeKind(t, "x = 1", diag.UnboundName)
	assertRuntimeKind(t, "var number x\nx = \"s\"", diag.TypeMismatch)
}

func TestOperatorTypeSafetyNet(t *testing.T) {
	assertRuntimeKind(t, "echo(1 # 2)", diag.TypeMismatch)
	assertRuntimeKind(t, `echo("a" + "b")`, diag.TypeMismatch)
	assertRuntimeKind(t, "echo(1 and true)", diag.TypeMismatch)
	assertRuntimeKind(t, `echo(1 == "1")`, diag.TypeMismatch)
	assertRuntimeKind(t, "if (1) {\n}", diag.TypeMismatch)
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	// The right operands reference an unbound name; they must never be
	// evaluated.
	const src = `
echo(false and missing)
echo(true or missing)
`
	want := "false\ntrue\n"
	if out := mustRun(t, src); out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestIfArmsShortCircuitByPosition(t *testing.T) {
	const src = `
var number x = 2
if (x == 1) {
  echo("one")
} else if (x == 2) {
  echo("two")
} else if (x == 2) {
  echo("again")
} else {
  echo("other")
}
`
	if out := mustRun(t, src); out != "two\n" {
		t.Fatalf("output = %q, want %q", out, "two\n")
	}
}

func TestBlockFramesAreDiscarded(t *testing.T) {
	// Sibling blocks may each declare t; the frame dies with the block.
	const src = `
{
  var number t = 1
}
{
  var number t = 2
  echo(t)
}
`
	if out := mustRun(t, src); out != "2\n" {
		t.Fatalf("output = %q, want %q", out, "2\n")
	}
}

func TestDuplicateInSameFrame(t *testing.T) {
	assertRuntimeKind(t, "var number x\nvar number x", diag.Semantic)
}

func TestFunctionClosesOverGlobalFrame(t *testing.T) {
	const src = `
var number total = 0
func bump() {
  total = total + 1
}
bump()
bump()
echo(total)
`
	if out := mustRun(t, src); out != "2\n" {
		t.Fatalf("output = %q, want %q", out, "2\n")
	}
}

func TestCallFrameIsNotCallersFrame(t *testing.T) {
	// f's body must not see g's local n; it resolves n in the global frame.
	const src = `
var number n = 100
func f() {
  return n
}
func g() {
  var number n = 5
  return f() + n
}
echo(g())
`
	if out := mustRun(t, src); out != "105\n" {
		t.Fatalf("output = %q, want %q", out, "105\n")
	}
}

func TestReturnUnwindsLoopsAndBlocks(t *testing.T) {
	const src = `
func firstOver(number limit) {
  var number n = 0
  loop (true) {
    if (n > limit) {
      return n
    }
    n = n + 1
  }
}
echo(firstOver(3))
`
	if out := mustRun(t, src); out != "4\n" {
		t.Fatalf("output = %q, want %q", out, "4\n")
	}
}

func TestRecursion(t *testing.T) {
	const src = `
func fact(number n) {
  if (n <= 1) {
    return 1
  }
  return n * fact(n - 1)
}
echo(fact(6))
`
	if out := mustRun(t, src); out != "720\n" {
		t.Fatalf("output = %q, want %q", out, "720\n")
	}
}

func TestNoReturnValueUsedAtRuntime(t *testing.T) {
	const src = `
func log(string msg) {
  echo(msg)
}
var number y = log("side")
`
	out := assertRuntimeKind(t, src, diag.NoReturnValueUsed)
	if out != "side\n" {
		t.Fatalf("output = %q, want %q", out, "side\n")
	}
}

func TestCallTypeAndArityChecks(t *testing.T) {
	const fn = "func f(number n) {\n  return n\n}\n"
	assertRuntimeKind(t, fn+`f("x")`, diag.TypeMismatch)
	assertRuntimeKind(t, fn+"f(1, 2)", diag.Arity)
	assertRuntimeKind(t, "strlen(1)", diag.TypeMismatch)
}

func TestFunctionEqualityRejected(t *testing.T) {
	const src = `
func f() {
  return 1
}
echo(f == f)
`
	assertRuntimeKind(t, src, diag.TypeMismatch)
}

func TestExitStopsRun(t *testing.T) {
	const src = `
echo("a")
exit(3)
echo("b")
`
	prog, err := parser.New("main.spl", src).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	var out bytes.Buffer
	ip := New(WithStdout(&out))
	err = ip.Run(prog)
	var ee *diag.ExitError
	if !errors.As(err, &ee) || ee.Code != 3 {
		t.Fatalf("error = %v, want exit code 3", err)
	}
	if out.String() != "a\n" {
		t.Fatalf("output = %q, want %q", out.String(), "a\n")
	}
}

func TestExitUnwindsFromFunction(t *testing.T) {
	const src = `
func fail() {
  exit(7)
}
loop (true) {
  fail()
}
`
	_, err := runSource(t, src)
	var ee *diag.ExitError
	if !errors.As(err, &ee) || ee.Code != 7 {
		t.Fatalf("error = %v, want exit code 7", err)
	}
}

func TestDeterministicOutput(t *testing.T) {
	const src = `
var number x = 3
func next() {
  x = x * 2 + 1
  return x
}
echo(next())
echo(next())
echo(string(next()) # "|" # string(x))
`
	first := mustRun(t, src)
	second := mustRun(t, src)
	if first != second {
		t.Fatalf("two runs differ: %q vs %q", first, second)
	}
	want := "7\n15\n31|31\n"
	if first != want {
		t.Fatalf("output = %q, want %q", first, want)
	}
}

func TestErrorsCarryPosition(t *testing.T) {
	_, err := runSource(t, "var number x = 1\necho(1 / 0)")
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *diag.Error", err)
	}
	if de.File != "main.spl" || de.Line != 2 {
		t.Fatalf("error at %s:%d, want main.spl:2", de.File, de.Line)
	}
	if !strings.Contains(de.Error(), "main.spl:2:") {
		t.Fatalf("rendered error = %q, want file:line:col prefix", de.Error())
	}
}
