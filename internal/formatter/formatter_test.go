package formatter

import (
	"testing"
)

func format(t *testing.T, src string) string {
	t.Helper()
	out, err := New().Format("test.spl", src)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	return out
}

func TestFormatNormalizesLayout(t *testing.T) {
	const src = `var   number x=10
loop(x>0){x=x-1}
echo( x )`
	want := `var number x = 10;
loop (x > 0) {
  x = x - 1;
}
echo(x);
`
	if out := format(t, src); out != want {
		t.Fatalf("formatted output = %q, want %q", out, want)
	}
}

func TestFormatFuncAndIfChain(t *testing.T) {
	const src = `func clamp(number v,number lo,number hi){
if(v<lo){return lo}else if(v>hi){return hi}else{return v}
}`
	want := `func clamp(number v, number lo, number hi) {
  if (v < lo) {
    return lo;
  } else if (v > hi) {
    return hi;
  } else {
    return v;
  }
}
`
	if out := format(t, src); out != want {
		t.Fatalf("formatted output = %q, want %q", out, want)
	}
}

func TestFormatKeepsNecessaryParentheses(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"needed parens kept", "(2 + 3) * 4", "(2 + 3) * 4;\n"},
		{"redundant parens dropped", "2 + (3 * 4)", "2 + 3 * 4;\n"},
		{"left assoc right operand", "10 - (2 - 3)", "10 - (2 - 3);\n"},
		{"power right assoc", "2 ^ 3 ^ 2", "2 ^ 3 ^ 2;\n"},
		{"unary in exponent", "2 ^ -3", "2 ^ -3;\n"},
		{"not over or", "not (a or b)", "not (a or b);\n"},
		{"concat of calls", `string(1) # string(2)`, "string(1) # string(2);\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if out := format(t, tc.src); out != tc.want {
				t.Fatalf("formatted output = %q, want %q", out, tc.want)
			}
		})
	}
}

func TestFormatStringsAndImports(t *testing.T) {
	src := "import \"lib.spl\"\nconst string s = \"a\\nb\"\nvar bool flag"
	want := "import \"lib.spl\";\nconst string s = \"a\\nb\";\nvar bool flag;\n"
	if out := format(t, src); out != want {
		t.Fatalf("formatted output = %q, want %q", out, want)
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	const src = `
var number x = 1
func inc(number n) {
  return n + 1
}

loop (x < 10) {
  x = inc(x)
}
if (x == 10) {
  echo("done")
}
`
	once := format(t, src)
	twice := format(t, once)
	if once != twice {
		t.Fatalf("formatting is not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestFormatReportsParseError(t *testing.T) {
	if _, err := New().Format("test.spl", "var = 1"); err == nil {
		t.Fatalf("Format succeeded on malformed input")
	}
}
