// Pyrun runs Python source inside the embedded interpreter: a script file,
// a -c program, a single -e expression, a program read from stdin, or an
// interactive console when stdin is a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/python-bridge/errors"
	"github.com/wippyai/python-bridge/runtime"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile  = flag.String("config", "", "Path to YAML config file")
		envFile     = flag.String("env-file", ".env", "Path to dotenv file loaded before start")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		logFile     = flag.String("log-file", "", "Write logs to a rotated file instead of stderr")
		sysPath     = flag.String("path", "", "Directories prepended to sys.path (comma-separated)")
		programName = flag.String("name", "", "Interpreter program name")
		quiet       = flag.Bool("q", false, "Do not print Python tracebacks")
		code        = flag.String("c", "", "Program passed in as string")
		expr        = flag.String("e", "", "Evaluate an expression and print its value")
		interactive = flag.Bool("i", false, "Interactive console, after running any file or -c program")
	)
	flag.Usage = usage
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: load env file: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var o overrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			o.logLevel = logLevel
		case "log-file":
			o.logFile = logFile
		case "path":
			o.sysPath = sysPath
		case "name":
			o.programName = programName
		case "q":
			o.quiet = quiet
		}
	})
	cfg.apply(o)

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: logger: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := interruptContext(context.Background())
	defer stop()

	rt, err := runtime.New(ctx, append(cfg.options(), runtime.WithLogger(logger))...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: start python: %v\n", err)
		return 1
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			logger.Warn("close runtime", zap.Error(err))
		}
	}()

	pc, err := rt.Context(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	args := flag.Args()
	script := "-"
	switch {
	case *code != "":
		script = "-c"
	case *expr != "":
		script = "-e"
	case len(args) > 0:
		script, args = args[0], args[1:]
	}
	if err := pc.Set(ctx, "__pyrun_argv__", append([]string{script}, args...)); err != nil {
		return report(err, cfg.QuietErrors)
	}
	if err := pc.Run(ctx, "import sys\nsys.argv = __pyrun_argv__\ndel __pyrun_argv__"); err != nil {
		return report(err, cfg.QuietErrors)
	}

	if cfg.Startup != "" {
		logger.Debug("running startup code")
		if err := pc.Run(ctx, cfg.Startup); err != nil {
			return report(err, cfg.QuietErrors)
		}
	}

	stdinTTY := term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec

	switch {
	case *expr != "":
		s, err := pc.EvalString(ctx, *expr)
		if err != nil {
			return report(err, cfg.QuietErrors)
		}
		fmt.Println(s)
		return 0

	case *code != "":
		if err := pc.Run(ctx, *code); err != nil {
			return report(err, cfg.QuietErrors)
		}

	case script != "-":
		if err := rt.RunFile(ctx, script); err != nil {
			return report(err, cfg.QuietErrors)
		}

	case !stdinTTY:
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: read stdin: %v\n", err)
			return 1
		}
		if err := pc.Run(ctx, string(src)); err != nil {
			return report(err, cfg.QuietErrors)
		}
		return 0

	default:
		*interactive = true
	}

	if *interactive {
		if !stdinTTY {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			return 2
		}
		if err := runInteractive(ctx, pc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

// interruptContext is canceled by the first SIGINT or SIGTERM. Running
// Python code does not observe ctx, so the default handlers are restored
// then and a second signal ends the process.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

// report prints err when Python has not already done so and returns the
// process exit code. SystemExit maps to its exit status.
func report(err error, quiet bool) int {
	exc, ok := errors.ExceptionOf(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if exc.Type == "SystemExit" {
		return exitStatus(exc.Message)
	}
	if quiet {
		fmt.Fprintln(os.Stderr, exc.String())
	}
	return 1
}

// exitStatus mirrors how the interpreter turns a SystemExit argument into a
// status: none is 0, an integer is itself, anything else is printed and 1.
func exitStatus(msg string) int {
	if msg == "" || msg == "None" {
		return 0
	}
	if n, err := strconv.Atoi(msg); err == nil {
		return n
	}
	fmt.Fprintln(os.Stderr, msg)
	return 1
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: pyrun [flags] [file.py [args...]]")
	fmt.Fprintln(os.Stderr, "       pyrun [flags] -c 'print(1)'")
	fmt.Fprintln(os.Stderr, "       pyrun [flags] -e '1 + 1'")
	fmt.Fprintln(os.Stderr, "       pyrun [flags] -i  (interactive console)")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}
