// Package cmd implements the CLI command structure for stq.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/stq/internal/config"
	"github.com/nibzard/stq/internal/engine"
	"github.com/nibzard/stq/internal/logging"
	"github.com/nibzard/stq/internal/task"
	"github.com/nibzard/stq/internal/taskfile"
	"github.com/nibzard/stq/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Exit codes.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitStartup     = 2
	ExitInterrupted = 130
)

// ExitCode maps an error returned by Run to the process exit code.
func ExitCode(ctx context.Context, err error) int {
	if err == nil {
		return ExitOK
	}
	if ctx.Err() != nil {
		return ExitInterrupted
	}
	var se *engine.StartupError
	if errors.As(err, &se) {
		return ExitStartup
	}
	return ExitError
}

// Run executes the stq CLI.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stq", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand(stdout)
	}

	cfg := cws.Config
	subcommand := "tui"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs, stderr)
	case "add":
		return addCommand(cfg, remainingArgs, stdout, stderr)
	case "next":
		return nextCommand(cfg, remainingArgs, stdout, stderr)
	case "peek":
		return peekCommand(cfg, remainingArgs, stdout, stderr)
	case "ls":
		return lsCommand(cfg, remainingArgs, stdout, stderr)
	case "doctor":
		return doctorCommand(cws, remainingArgs, stdout)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs, stdout, stderr)
	case "config":
		fmt.Fprint(stdout, config.ExampleConfig())
		return nil
	case "version":
		return versionCommand(stdout)
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// session is an engine together with the logger and journal it writes to.
type session struct {
	engine  *engine.Engine
	logger  *log.Logger
	journal *logging.RunLogger
}

// openSession loads the tasks file. Console logs go to console; pass nil to
// discard them.
func openSession(cfg *config.Config, console io.Writer) (*session, error) {
	s := &session{logger: logging.NewDiscard()}
	if console != nil {
		s.logger = logging.NewConsoleFromConfig(console, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)
	}

	opts := []engine.Option{engine.WithLogger(s.logger)}
	if cfg.Journal {
		journal, err := logging.NewRunLogger(cfg.LogDir, cfg.WorkDir)
		if err != nil {
			s.logger.Warn("Journal disabled", "err", err)
		} else {
			s.journal = journal
			opts = append(opts, engine.WithJournal(journal))
		}
	}

	eng, err := engine.New(cfg.TasksFile, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.engine = eng
	return s, nil
}

// Close closes the journal.
func (s *session) Close() {
	if err := s.journal.Close(); err != nil {
		s.logger.Warn("Closing journal failed", "err", err)
	}
}

// tuiCommand runs the interactive window.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("stq tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	// The window owns the terminal, so console logs are dropped.
	s, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	return ui.RunTUI(ctx, s.engine)
}

// addCommand enqueues one task and saves.
func addCommand(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stq add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	priority := fs.Bool("p", false, "Add as a priority task")
	fs.BoolVar(priority, "priority", false, "Add as a priority task")
	if err := fs.Parse(args); err != nil {
		return err
	}

	content := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("add: no task content given")
	}

	s, err := openSession(cfg, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	s.engine.Enqueue(content, *priority)
	if err := s.engine.Save(); err != nil {
		return err
	}

	kind := "task"
	if *priority {
		kind = "priority task"
	}
	fmt.Fprintf(stdout, "Added %s (%d pending)\n", kind, len(s.engine.Pending()))
	return nil
}

// nextCommand takes the next task off the queue for good and prints it.
func nextCommand(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	s, err := openSession(cfg, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.engine.CanDequeue() {
		return fmt.Errorf("next: %w", task.ErrQueueEmpty)
	}
	t, err := s.engine.Dequeue()
	if err != nil {
		return fmt.Errorf("next: %w", err)
	}
	s.engine.MarkDone()
	if err := s.engine.Save(); err != nil {
		return err
	}

	fmt.Fprintln(stdout, formatTask(t.Record()))
	return nil
}

// peekCommand prints the next task without removing it.
func peekCommand(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	s, err := openSession(cfg, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	t, ok := s.engine.Peek()
	if !ok {
		fmt.Fprintln(stdout, "Queue is empty.")
		return nil
	}
	fmt.Fprintln(stdout, formatTask(t.Record()))
	return nil
}

// lsCommand lists pending tasks in dequeue order.
func lsCommand(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stq ls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "Print the queue as a tasks document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	s, err := openSession(cfg, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	pending := s.engine.Pending()
	if *asJSON {
		data, err := (&taskfile.Document{Tasks: pending}).Marshal()
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	if len(pending) == 0 {
		fmt.Fprintln(stdout, "No tasks found.")
		return nil
	}
	for i, r := range pending {
		fmt.Fprintf(stdout, "%3d %s\n", i+1, formatTask(r))
	}
	return nil
}

// doctorCommand checks config and tasks file validity.
func doctorCommand(cws *config.ConfigWithSources, args []string, stdout io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	cfg := cws.Config

	fmt.Fprintln(stdout, "stq doctor")
	fmt.Fprintln(stdout, "==========")
	fmt.Fprintln(stdout)

	allOK := true

	fmt.Fprintln(stdout, "Config:")
	if file := cws.GetConfigFile(); file != "" {
		fmt.Fprintf(stdout, "  File: %s\n", file)
	} else {
		fmt.Fprintln(stdout, "  File: (none, using defaults)")
	}
	fmt.Fprintf(stdout, "  Log level: %s (%s)\n", cfg.LogLevel, cws.Sources["log_level"])
	fmt.Fprintf(stdout, "  Log format: %s (%s)\n", cfg.LogFormat, cws.Sources["log_format"])
	for _, p := range cfg.Problems() {
		fmt.Fprintf(stdout, "  ❌ %s\n", p)
		allOK = false
	}
	for _, key := range cws.Unknown {
		fmt.Fprintf(stdout, "  ⚠️  Unknown key: %s\n", key)
	}
	fmt.Fprintln(stdout)

	fmt.Fprintf(stdout, "Tasks file: %s (%s)\n", cfg.TasksFile, cws.Sources["tasks_file"])
	data, err := os.ReadFile(cfg.TasksFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(stdout, "  ⚠️  Not found (will be created on save)")
	case err != nil:
		fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
		allOK = false
	default:
		result := taskfile.ValidateBytes(data)
		if result.Valid {
			doc, err := taskfile.Parse(data)
			if err != nil {
				fmt.Fprintf(stdout, "  ❌ %v\n", err)
				allOK = false
				break
			}
			urgent := 0
			for _, r := range doc.Tasks {
				if r.Priority {
					urgent++
				}
			}
			fmt.Fprintf(stdout, "  ✅ Valid (%d tasks, %d priority)\n", len(doc.Tasks), urgent)
		} else {
			fmt.Fprintln(stdout, "  ❌ Validation failed:")
			for _, e := range result.Errors {
				fmt.Fprintf(stdout, "     - %v\n", e)
			}
			allOK = false
		}
	}
	fmt.Fprintln(stdout)

	if cfg.Journal {
		logDir, err := logging.FindLogDir(cfg.LogDir, cfg.WorkDir)
		if err != nil {
			fmt.Fprintf(stdout, "Journal directory: ❌ %v\n", err)
			allOK = false
		} else {
			fmt.Fprintf(stdout, "Journal directory: %s\n", logDir)
			if _, err := os.Stat(logDir); err != nil {
				fmt.Fprintln(stdout, "  ⚠️  Not found (will be created on first session)")
			} else {
				fmt.Fprintln(stdout, "  ✅ OK")
			}
		}
	} else {
		fmt.Fprintln(stdout, "Journal: disabled")
	}
	fmt.Fprintln(stdout)

	if allOK {
		fmt.Fprintln(stdout, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(stdout, "⚠️  Some checks failed.")
	return fmt.Errorf("doctor checks failed")
}

// tailCommand prints the latest session journal.
func tailCommand(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stq tail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	follow := fs.Bool("f", false, "Follow the journal (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the journal (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logDir, err := logging.FindLogDir(cfg.LogDir, cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("finding log directory: %w", err)
	}
	logPath, err := logging.FindLatestLog(logDir)
	if err != nil {
		return fmt.Errorf("finding latest log: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(stdout, "No journal files found.")
		return nil
	}

	fmt.Fprintf(stderr, "Tailing: %s\n", logPath)
	return logging.TailLog(ctx, stdout, logPath, *n, *follow)
}

func versionCommand(w io.Writer) error {
	fmt.Fprintf(w, "stq version %s\n", Version)
	return nil
}

func formatTask(r task.Record) string {
	if r.Priority {
		return "! " + r.Content
	}
	return "  " + r.Content
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "stq - a simple task queue")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  stq [options] [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui                   Open the interactive queue window (default)")
	fmt.Fprintln(w, "  add [-p] <content>    Add a task (-p for priority)")
	fmt.Fprintln(w, "  next                  Take the next task off the queue and print it")
	fmt.Fprintln(w, "  peek                  Print the next task without removing it")
	fmt.Fprintln(w, "  ls [-json]            List pending tasks in dequeue order")
	fmt.Fprintln(w, "  doctor                Check config and tasks file validity")
	fmt.Fprintln(w, "  tail [-f] [-n N]      Print the latest session journal")
	fmt.Fprintln(w, "  config                Print an example configuration file")
	fmt.Fprintln(w, "  version               Show version information")
	fmt.Fprintln(w, "  help                  Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
