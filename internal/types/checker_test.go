package types

import (
	"fmt"
	"strings"
	"testing"

	"spl/internal/ast"
	"spl/internal/parser"
)

// fakeImporter serves imports from an in-memory map keyed by target name.
type fakeImporter struct {
	files map[string]string
}

func (f *fakeImporter) Resolve(target, importer string) (string, error) {
	if _, ok := f.files[target]; !ok {
		return "", fmt.Errorf("no such file %q", target)
	}
	return target, nil
}

func (f *fakeImporter) Load(path string) (string, error) {
	return f.files[path], nil
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.New("main.spl", src).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	return prog
}

func checkSource(t *testing.T, src string, files map[string]string) error {
	t.Helper()
	return NewChecker(&fakeImporter{files: files}).Check(mustParse(t, src))
}

func assertCheckErr(t *testing.T, src, want string) {
	t.Helper()
	err := checkSource(t, src, nil)
	if err == nil {
		t.Fatalf("Check succeeded, want error containing %q", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("error = %q, want substring %q", err, want)
	}
}

func assertCheckOK(t *testing.T, src string) {
	t.Helper()
	if err := checkSource(t, src, nil); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestShadowingRejected(t *testing.T) {
	const src = `
var number x = 1
if (true) {
  var number x = 2
}
`
	assertCheckErr(t, src, "redeclaration of 'x' in enclosing scope")
}

func TestDuplicateInSameScopeRejected(t *testing.T) {
	assertCheckErr(t, "var number x\nvar string x", "redeclaration of 'x'")
}

func TestShadowingBuiltinRejected(t *testing.T) {
	assertCheckErr(t, "var number echo", "redeclaration of 'echo'")
}

func TestUseBeforeDeclarationSameScope(t *testing.T) {
	assertCheckErr(t, "echo(x)\nvar number x = 1", "use of 'x' before its declaration")
}

func TestUseBeforeDeclarationInsideBlock(t *testing.T) {
	const src = `
if (true) {
  y = 2
  var number y
}
`
	assertCheckErr(t, src, "use of 'y' before its declaration")
}

func TestEnclosingScopeVisibleRegardlessOfPosition(t *testing.T) {
	// greet's body references a constant declared after the function; names
	// in enclosing scopes are visible anywhere in nested scopes.
	const src = `
func greet() {
  return "hello " # who
}
const string who = "world"
echo(greet())
`
	assertCheckOK(t, src)
}

func TestConstReassignment(t *testing.T) {
	assertCheckErr(t, "const number c = 1\nc = 2", "cannot assign to constant 'c'")
}

func TestAssignToFunction(t *testing.T) {
	assertCheckErr(t, "func f() {\n}\nf = 1", "cannot assign to function 'f'")
}

func TestAssignToUndeclared(t *testing.T) {
	assertCheckErr(t, "x = 1", "assignment to undeclared name 'x'")
}

func TestAssignTypeMismatch(t *testing.T) {
	assertCheckErr(t, "var number x\nx = \"nope\"", "cannot assign string value to number 'x'")
}

func TestInitializerTypeMismatch(t *testing.T) {
	assertCheckErr(t, `var bool ok = 1`, "cannot initialize bool 'ok' with number value")
}

func TestConditionMustBeBool(t *testing.T) {
	assertCheckErr(t, "if (1) {\n}", "if condition must be bool")
	assertCheckErr(t, "loop (\"x\") {\n}", "loop condition must be bool")
}

func TestOperatorTypeRules(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"concat numbers", "var string s = 1 # 2", "operator '#' requires string operands"},
		{"add strings", `var number n = "a" + "b"`, "operator '+' requires number operands"},
		{"and number", "var bool b = 1 and true", "operator 'and' requires bool operands"},
		{"compare mixed", `var bool b = 1 < "a"`, "requires two numbers or two strings"},
		{"equality mixed", `var bool b = 1 == "1"`, "requires operands of the same type"},
		{"negate string", `var number n = -"a"`, "operator '-' requires a number operand"},
		{"not number", "var bool b = not 1", "operator 'not' requires a bool operand"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertCheckErr(t, tc.src, tc.want)
		})
	}
}

func TestWellTypedOperatorsAccepted(t *testing.T) {
	const src = `
var number n = 2 + 3 * 4 ^ 2 % 5
var string s = "a" # "b"
var bool b = (1 < 2) and not (s == "ab") or n >= 0
`
	assertCheckOK(t, src)
}

func TestBuiltinSignatures(t *testing.T) {
	assertCheckOK(t, `
echo(strlen("abc") + number("3.5"))
echo(bool("TRUE"))
echo(string(42))
`)
	assertCheckErr(t, "strlen(1)", "argument 1 of 'strlen' must be string")
	assertCheckErr(t, "exit(\"now\")", "argument 1 of 'exit' must be number")
	assertCheckErr(t, "echo(1, 2)", "'echo' expects 1 argument(s), found 2")
}

func TestCallingNonFunction(t *testing.T) {
	assertCheckErr(t, "var number x = 1\nx()", "'x' is not a function")
}

func TestNoReturnValueUsed(t *testing.T) {
	const src = `
func log(string msg) {
  echo(msg)
}
var number y = log("hi")
`
	assertCheckErr(t, src, "'log' never returns a value; its result cannot be used")
}

func TestVoidCallInStatementPositionAccepted(t *testing.T) {
	const src = `
func log(string msg) {
  echo(msg)
}
log("hi")
`
	assertCheckOK(t, src)
}

func TestReturnTypeInference(t *testing.T) {
	const src = `
func add(number a, number b) {
  return a + b
}
var string s = add(1, 2)
`
	assertCheckErr(t, src, "cannot initialize string 's' with number value")
}

func TestConflictingReturnTypes(t *testing.T) {
	const src = `
func odd(number n) {
  if (n % 2 == 1) {
    return true
  }
  return "no"
}
`
	assertCheckErr(t, src, "conflicting return types")
}

func TestRecursionAccepted(t *testing.T) {
	const src = `
func fact(number n) {
  if (n <= 1) {
    return 1
  }
  return n * fact(n - 1)
}
echo(fact(5))
`
	assertCheckOK(t, src)
}

func TestReturnOutsideFunction(t *testing.T) {
	assertCheckErr(t, "return 1", "return outside of a function")
}

func TestImportedNamesVisible(t *testing.T) {
	files := map[string]string{
		"lib.spl": "func twice(number n) {\n  return n * 2\n}",
	}
	const src = `
import "lib.spl"
echo(twice(21))
`
	if err := checkSource(t, src, files); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestImportBeforeUseOrdering(t *testing.T) {
	// The import is inlined at its statement position, so a use that
	// textually precedes it is a use before declaration.
	files := map[string]string{
		"lib.spl": "var number shared = 1",
	}
	const src = `
echo(shared)
import "lib.spl"
`
	err := checkSource(t, src, files)
	if err == nil || !strings.Contains(err.Error(), "use of 'shared' before its declaration") {
		t.Fatalf("error = %v, want use before declaration", err)
	}
}

func TestImportCycleDetected(t *testing.T) {
	files := map[string]string{
		"a.spl": `import "b.spl"`,
		"b.spl": `import "a.spl"`,
	}
	err := checkSource(t, `import "a.spl"`, files)
	if err == nil || !strings.Contains(err.Error(), "import cycle") {
		t.Fatalf("error = %v, want import cycle", err)
	}
}

func TestDuplicateImportAnalyzedOnce(t *testing.T) {
	// lib is reached twice; a second analysis would report twice's
	// redeclaration.
	files := map[string]string{
		"lib.spl": "func twice(number n) {\n  return n * 2\n}",
		"mid.spl": "import \"lib.spl\"",
	}
	const src = `
import "lib.spl"
import "mid.spl"
echo(twice(4))
`
	if err := checkSource(t, src, files); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestUnresolvableImport(t *testing.T) {
	err := checkSource(t, `import "missing.spl"`, nil)
	if err == nil || !strings.Contains(err.Error(), "cannot resolve import") {
		t.Fatalf("error = %v, want unresolvable import", err)
	}
}

func TestImportInsideBlockRejected(t *testing.T) {
	const src = `
if (true) {
  import "lib.spl"
}
`
	files := map[string]string{"lib.spl": ""}
	err := checkSource(t, src, files)
	if err == nil || !strings.Contains(err.Error(), "import is only allowed at top level") {
		t.Fatalf("error = %v, want top-level import error", err)
	}
}
