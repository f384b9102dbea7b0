package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"spl/internal/ast"
	"spl/internal/diag"
	"spl/internal/parser"
	"spl/internal/runtime"
)

const (
	historyFile = ".spl_history"
	promptMain  = "spl> "
	promptCont  = "...> "
)

type ReplCmd struct{}

// Run starts an interactive session against one persistent interpreter, so
// declarations and imports accumulate in the global frame across lines.
func (c *ReplCmd) Run(cli *CLI) error {
	resolver, err := newResolver(cli.Config, "")
	if err != nil {
		return err
	}
	ip := runtime.New(runtime.WithResolver(resolver))

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	// Relative imports typed at the prompt resolve from the working
	// directory.
	replFile := filepath.Join(cwd, "(repl)")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	fmt.Println("spl repl, Ctrl+D to exit")
	for {
		src, ok := readInput(ln)
		if !ok {
			fmt.Println()
			break
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if err := evalLine(ip, replFile, src); err != nil {
			var ee *diag.ExitError
			if errors.As(err, &ee) {
				saveHistory(ln, histPath)
				return err
			}
			fmt.Println(err)
		}
	}

	saveHistory(ln, histPath)
	return nil
}

func evalLine(ip *runtime.Interp, replFile, src string) error {
	prog, err := parser.New(replFile, src).ParseProgram()
	if err != nil {
		return err
	}
	// A lone expression is evaluated and echoed; anything else executes as
	// top-level statements.
	if len(prog.Stmts) == 1 {
		if es, ok := prog.Stmts[0].(*ast.ExprStmt); ok {
			v, hasVal, err := ip.Eval(es.Expr, replFile)
			if err != nil {
				return err
			}
			if hasVal {
				fmt.Println(v.Render())
			}
			return nil
		}
	}
	return ip.Run(prog)
}

// readInput collects lines until the parser stops reporting that the input
// ended early, so blocks can span prompts.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C abandons the current input.
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, err := parser.New("(repl)", src).ParseProgram(); err == nil || !needsMore(err) {
			return src, true
		}
	}
}

func needsMore(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "found eof") ||
		strings.Contains(msg, "unterminated string")
}

func saveHistory(ln *liner.State, path string) {
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
}
