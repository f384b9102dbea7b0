package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"spl/internal/ast"
	"spl/internal/config"
	"spl/internal/diag"
	"spl/internal/formatter"
	"spl/internal/parser"
	"spl/internal/runtime"
	"spl/internal/types"
)

type CLI struct {
	Debug  bool   `help:"Enable debug logging." short:"d"`
	Config string `help:"Path to an spl.yaml config file." type:"path" placeholder:"FILE"`

	Run   RunCmd   `cmd:"" default:"withargs" help:"Execute a script."`
	Check CheckCmd `cmd:"" help:"Parse and check a script without executing it."`
	Fmt   FmtCmd   `cmd:"" help:"Print a script in canonical form."`
	Repl  ReplCmd  `cmd:"" help:"Start an interactive session."`
}

func main() {
	var cli CLI
	app := kong.Must(&cli,
		kong.Name("spl"),
		kong.Description("Interpreter for SPL scripts."),
		kong.UsageOnError(),
	)
	ctx, err := app.Parse(os.Args[1:])
	app.FatalIfErrorf(err)

	setupLogging(cli.Debug)

	if err := ctx.Run(&cli); err != nil {
		os.Exit(exitStatus(err))
	}
}

func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// exitStatus maps an error to the process status: a script's exit() call
// carries its own code, runtime failures are 1, and errors found before
// execution are 2. The error itself has already been printed, except for
// exit which is silent.
func exitStatus(err error) int {
	var ee *diag.ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	fmt.Fprintln(os.Stderr, err)
	var de *diag.Error
	if errors.As(err, &de) && !de.Kind.Runtime() {
		return 2
	}
	return 1
}

type RunCmd struct {
	Script string `arg:"" help:"Script file to execute." type:"existingfile"`
}

func (c *RunCmd) Run(cli *CLI) error {
	path, prog, err := loadProgram(c.Script)
	if err != nil {
		return err
	}
	resolver, err := newResolver(cli.Config, path)
	if err != nil {
		return err
	}
	if err := types.NewChecker(resolver).Check(prog); err != nil {
		return err
	}
	slog.Debug("checked", "file", path)
	ip := runtime.New(runtime.WithResolver(resolver))
	if err := ip.Run(prog); err != nil {
		return err
	}
	slog.Debug("ran", "file", path)
	return nil
}

type CheckCmd struct {
	Script string `arg:"" help:"Script file to check." type:"existingfile"`
}

func (c *CheckCmd) Run(cli *CLI) error {
	path, prog, err := loadProgram(c.Script)
	if err != nil {
		return err
	}
	resolver, err := newResolver(cli.Config, path)
	if err != nil {
		return err
	}
	return types.NewChecker(resolver).Check(prog)
}

type FmtCmd struct {
	Script string `arg:"" help:"Script file to format." type:"existingfile"`
	Write  bool   `help:"Rewrite the file in place instead of printing." short:"w"`
}

func (c *FmtCmd) Run(cli *CLI) error {
	src, err := os.ReadFile(c.Script)
	if err != nil {
		return err
	}
	out, err := formatter.New().Format(c.Script, string(src))
	if err != nil {
		return err
	}
	if c.Write {
		return os.WriteFile(c.Script, []byte(out), 0o644)
	}
	fmt.Print(out)
	return nil
}

// loadProgram canonicalizes the script path, so the import registry
// recognizes the entry file when it is also imported, then parses it.
func loadProgram(script string) (string, *ast.Program, error) {
	path, err := filepath.Abs(script)
	if err != nil {
		return "", nil, err
	}
	path = filepath.Clean(path)
	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	prog, err := parser.New(path, string(src)).ParseProgram()
	if err != nil {
		return "", nil, err
	}
	slog.Debug("parsed", "file", path, "statements", len(prog.Stmts))
	return path, prog, nil
}

func newResolver(explicit, script string) (*runtime.Resolver, error) {
	cfg, err := config.Discover(explicit, script)
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "import_paths", cfg.ImportPaths)
	return &runtime.Resolver{SearchPaths: cfg.ImportPaths}, nil
}
