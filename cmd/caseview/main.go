package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smileynet/caseview"
	"github.com/smileynet/caseview/internal/casedata"
	"github.com/smileynet/caseview/internal/config"
	"github.com/smileynet/caseview/internal/render"
	"github.com/smileynet/caseview/internal/selection"
	"github.com/smileynet/caseview/internal/viewer"
	"github.com/smileynet/caseview/internal/watch"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// demoOverlayDir shadows files of the embedded demo dataset when present.
const demoOverlayDir = "data"

// CLI is the top-level command structure for caseview.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	View    ViewCmd          `cmd:"" default:"withargs" help:"Browse test cases interactively (default)."`
	List    ListCmd          `cmd:"" help:"List test cases with their result counts."`
	Show    ShowCmd          `cmd:"" help:"Render one result of a test case to stdout."`
}

// ViewCmd opens the interactive viewer.
type ViewCmd struct {
	Source  string `help:"Test case source: demo:, a path, file:..., or http(s)://..." placeholder:"LOCATION"`
	Watch   bool   `help:"Reload when a file source changes." xor:"watch"`
	NoWatch bool   `help:"Do not reload when a file source changes." xor:"watch"`
	Style   string `help:"Markdown style: auto, dark, light, notty."`
}

// ListCmd prints the index.
type ListCmd struct {
	Source string `help:"Test case source: demo:, a path, file:..., or http(s)://..." placeholder:"LOCATION"`
}

// ShowCmd renders a test case without the TUI.
type ShowCmd struct {
	Case   string `arg:"" help:"Test case ID."`
	Result string `arg:"" optional:"" help:"Result ID. Defaults to the first result."`
	Source string `help:"Test case source: demo:, a path, file:..., or http(s)://..." placeholder:"LOCATION"`
	Width  int    `help:"Wrap width for rendered Markdown." default:"80"`
}

// loadConfig loads layered config from user and project paths, applies
// env overrides and then CLI overrides, and validates the result.
func loadConfig(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadLayered(config.DefaultPaths()...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging points the global zerolog logger at the configured file.
// The returned closer must be called on exit.
func setupLogging(lc config.Log) (io.Closer, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if level == zerolog.Disabled || lc.File == "" {
		log.Logger = zerolog.Nop()
		return closerFunc(func() error { return nil }), nil
	}
	if dir := filepath.Dir(lc.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
	}
	f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.Logger = zerolog.New(f).Level(level).With().Timestamp().Logger()
	return f, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newRegistry wires the source schemes caseview understands.
func newRegistry(cfg *config.Config) *casedata.Registry {
	reg := casedata.NewRegistry()
	reg.Register("demo", func(string) (casedata.Provider, error) {
		return casedata.NewFS(caseview.OverlayFS(demoOverlayDir, caseview.Demo), caseview.DemoManifest), nil
	})
	reg.Register("file", func(location string) (casedata.Provider, error) {
		return casedata.OpenDir(location)
	})
	web := func(location string) (casedata.Provider, error) {
		return casedata.NewHTTP(location, casedata.WithTimeout(cfg.Source.Timeout))
	}
	reg.Register("http", web)
	reg.Register("https", web)
	return reg
}

// openSource builds the cached provider for cfg.Source.Location.
func openSource(cfg *config.Config) (*casedata.Cache, error) {
	p, err := newRegistry(cfg).Open(cfg.Source.Location)
	if err != nil {
		return nil, err
	}
	log.Info().Str("source", cfg.Source.Location).Msg("source opened")
	return casedata.NewCache(p), nil
}

// setup is the shared prologue of every command: config, logging, source.
func setup(override func(*config.Config)) (*config.Config, *casedata.Cache, io.Closer, error) {
	cfg, err := loadConfig(override)
	if err != nil {
		return nil, nil, nil, err
	}
	logs, err := setupLogging(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	src, err := openSource(cfg)
	if err != nil {
		_ = logs.Close()
		return nil, nil, nil, err
	}
	return cfg, src, logs, nil
}

func sourceOverride(source string) func(*config.Config) {
	return func(c *config.Config) {
		if source != "" {
			c.Source.Location = source
		}
	}
}

// --- View command ---

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

func stdoutIsTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run builds real dependencies and launches the viewer.
func (v *ViewCmd) Run() error {
	if !stdoutIsTTY() {
		return errors.New("view: requires a terminal (TTY); use list or show instead")
	}

	cfg, src, logs, err := setup(v.override)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	defer func() { _ = logs.Close() }()

	recall, err := selection.ParseRecall(cfg.Selection.Recall)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	opts := []viewer.Option{
		viewer.WithRenderer(render.New(render.StyleFor(os.Stdout, cfg.Display.Style))),
		viewer.WithRecall(recall),
		viewer.WithLoadTimeout(cfg.Source.Timeout),
	}
	if w := startWatcher(cfg); w != nil {
		defer func() { _ = w.Close() }()
		opts = append(opts, viewer.WithReloads(w.Events()))
	}

	prog := tea.NewProgram(viewer.NewModel(src, opts...), tea.WithAltScreen())
	return v.run(true, prog)
}

func (v *ViewCmd) override(c *config.Config) {
	sourceOverride(v.Source)(c)
	if v.Style != "" {
		c.Display.Style = v.Style
	}
	switch {
	case v.Watch:
		c.Display.Watch = true
	case v.NoWatch:
		c.Display.Watch = false
	}
}

// run executes the tea program and surfaces an error the model quit with.
func (v *ViewCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return errors.New("view: requires a terminal (TTY)")
	}
	final, err := prog.Run()
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	if m, ok := final.(viewer.Model); ok && m.Err() != nil {
		return fmt.Errorf("view: %w", m.Err())
	}
	return nil
}

// startWatcher watches local file sources when enabled. Failure to watch
// is logged and the viewer runs without live reload.
func startWatcher(cfg *config.Config) *watch.Watcher {
	if !cfg.Display.Watch || casedata.Scheme(cfg.Source.Location) != "file" {
		return nil
	}
	w, err := watch.New(casedata.LocalPath(cfg.Source.Location))
	if err != nil {
		log.Warn().Err(err).Str("source", cfg.Source.Location).Msg("watch disabled")
		return nil
	}
	go func() {
		for err := range w.Errors() {
			log.Warn().Err(err).Msg("watch error")
		}
	}()
	log.Info().Str("root", w.Root()).Msg("watching source")
	return w
}

// --- List command ---

// Run prints every test case of the configured source.
func (l *ListCmd) Run() error {
	_, src, logs, err := setup(sourceOverride(l.Source))
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	defer func() { _ = logs.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return l.run(ctx, os.Stdout, src)
}

func (l *ListCmd) run(ctx context.Context, w io.Writer, src casedata.Provider) error {
	entries, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	for _, e := range entries {
		tc, err := src.Load(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", e.ID, e.Name, len(tc.Results))
	}
	return nil
}

// --- Show command ---

// Run renders the requested test case to stdout.
func (s *ShowCmd) Run() error {
	cfg, src, logs, err := setup(sourceOverride(s.Source))
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	defer func() { _ = logs.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	r := render.New(render.StyleFor(os.Stdout, cfg.Display.Style))
	return s.run(ctx, os.Stdout, src, r)
}

// run drives a selection.Controller the same way the viewer does, so
// result defaults and validation match the interactive view.
func (s *ShowCmd) run(ctx context.Context, w io.Writer, src casedata.Provider, r *render.Renderer) error {
	entries, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	ctrl := selection.New(entries)
	outcome, err := ctrl.SelectTestCase(s.Case)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	if err := selection.Await(ctx, ctrl, src, outcome); err != nil {
		return fmt.Errorf("show: %w", err)
	}
	if s.Result != "" {
		if err := ctrl.SelectResult(s.Result); err != nil {
			return fmt.Errorf("show: %w", err)
		}
	}

	tc, _ := ctrl.ActiveTestCase()
	sections := []string{r.Render("# "+tc.Name, s.Width)}
	if tc.Problem != "" {
		sections = append(sections, r.Render("## Problem\n\n"+tc.Problem, s.Width))
	}
	if tc.SystemPrompt != "" {
		sections = append(sections, r.Render("## System prompt\n\n"+tc.SystemPrompt, s.Width))
	}
	if res, ok := ctrl.SelectedResult(); ok {
		sections = append(sections, r.Render("## Result: "+res.Name+"\n\n"+res.Content, s.Width))
	} else {
		sections = append(sections, "No results for this test case.")
	}
	_, err = fmt.Fprintln(w, strings.Join(sections, "\n\n"))
	return err
}

// --- Exit codes ---

const (
	exitSuccess = 0
	exitData    = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, casedata.ErrNotFound) || errors.Is(err, casedata.ErrLoad) || errors.Is(err, selection.ErrInvalidSelection) {
		return exitData
	}
	return exitSetup
}

func newParser(cli *CLI, opts ...kong.Option) (*kong.Kong, error) {
	opts = append([]kong.Option{
		kong.Name("caseview"),
		kong.Description("Browse test cases and their results in the terminal."),
		kong.Vars{"version": version + " " + commit + " " + date},
	}, opts...)
	return kong.New(cli, opts...)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitSetup)
	}
	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitSetup)
	}
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
