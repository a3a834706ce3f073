// Package main implements the hexswatch command, which extracts the hex color
// codes found in files, URLs or standard input and renders them as a palette.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	rootpkg "tools.zach/dev/hexswatch"
	"tools.zach/dev/hexswatch/internal/atomicfile"
	"tools.zach/dev/hexswatch/internal/config"
	"tools.zach/dev/hexswatch/internal/hexcolor"
	"tools.zach/dev/hexswatch/internal/logger"
	"tools.zach/dev/hexswatch/internal/palette"
	"tools.zach/dev/hexswatch/internal/paths"
	"tools.zach/dev/hexswatch/internal/render"
	"tools.zach/dev/hexswatch/internal/source"
	"tools.zach/dev/hexswatch/internal/watch"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at release time via ldflags: -X main.version=0.1.0.
// When ldflags are not set, resolveVersion falls back to the VCS info the Go
// toolchain embeds.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the embedded VCS revision and dirty
// state produce a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Exit Codes
// ///////////////////////////////////////////////

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// usageError marks failures caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// errAllInputsFailed is returned when no input could be loaded.
var errAllInputsFailed = errors.New("no input could be read")

// exitCode maps an error from [app] to a process exit status.
func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue), errors.Is(err, errAllInputsFailed), errors.Is(err, source.ErrNoMatch):
		return exitUsage
	default:
		return exitFatal
	}
}

// ///////////////////////////////////////////////
// Flags
// ///////////////////////////////////////////////

// options holds parsed command-line flags. Fields that override config
// values only apply when the flag was given explicitly, tracked in set.
type options struct {
	dataDir     string
	configPath  string
	format      string
	sort        string
	out         string
	counts      bool
	locations   bool
	columns     int
	watch       bool
	verbose     bool
	showVersion bool
	saveConfig  bool
	logTail     int
	set         map[string]bool
	inputs      []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{set: map[string]bool{}}
	fs := flag.NewFlagSet(paths.BinaryName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.dataDir, "data-dir", paths.DefaultDataDir().Root, "Data directory for config and logs")
	fs.StringVar(&o.configPath, "config", "", "Config file (default <data-dir>/config.toml)")
	fs.StringVar(&o.format, "format", "", "Output format: "+joinFormats())
	fs.StringVar(&o.sort, "sort", "", "Entry order: "+joinOrders())
	fs.StringVar(&o.out, "out", "", "Write output to this file instead of stdout")
	fs.BoolVar(&o.counts, "counts", false, "Show occurrence counts")
	fs.BoolVar(&o.locations, "locations", false, "Show source:line:column for each occurrence")
	fs.IntVar(&o.columns, "columns", 0, "Tiles per row for swatch and png output (0 = auto)")
	fs.BoolVar(&o.watch, "watch", false, "Re-render whenever an input file changes")
	fs.BoolVar(&o.verbose, "v", false, "Log debug output to stderr")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&o.saveConfig, "save-config", false, "Write the effective config, including flag overrides, to the config file and exit")
	fs.IntVar(&o.logTail, "log-tail", 0, "Print the last N lines of the log file and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] [file|glob|url|-]...\n\n", paths.BinaryName)
		fmt.Fprintf(fs.Output(), "Extracts #RGB and #RRGGBB color codes and renders the palette.\n")
		fmt.Fprintf(fs.Output(), "With no inputs, reads standard input.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.inputs = fs.Args()
	if len(o.inputs) == 0 {
		o.inputs = []string{source.StdinRef}
	}
	if o.columns < 0 {
		return nil, usagef("-columns must be >= 0")
	}
	return o, nil
}

func joinFormats() string {
	names := make([]string, 0, len(render.Formats()))
	for _, f := range render.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func joinOrders() string {
	names := make([]string, 0, len(palette.ValidOrders()))
	for _, o := range palette.ValidOrders() {
		names = append(names, string(o))
	}
	return strings.Join(names, ", ")
}

// applyOverrides copies explicitly given flags onto cfg.
func (o *options) applyOverrides(cfg *config.Config) error {
	if o.set["format"] {
		cfg.Output.Format = o.format
	}
	if o.set["sort"] {
		cfg.Palette.Sort = o.sort
	}
	if o.set["counts"] {
		cfg.Output.ShowCounts = o.counts
	}
	if o.set["locations"] {
		cfg.Output.ShowLocations = o.locations
	}
	if o.set["columns"] {
		cfg.Output.Columns = o.columns
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	return nil
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	sig := signalChannel()
	go func() {
		<-sig
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one invocation and returns its exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(stderr, "%s: %v\n", paths.BinaryName, err)
		}
		return exitUsage
	}

	if o.showVersion {
		fmt.Fprintf(stdout, "%s %s\n", paths.BinaryName, resolveVersion())
		return exitOK
	}

	dir := paths.DataDir{Root: o.dataDir}
	if o.logTail > 0 {
		tail, err := logger.ReadTail(dir.Log(), o.logTail)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", paths.BinaryName, err)
			return exitFatal
		}
		if tail != "" {
			fmt.Fprintln(stdout, tail)
		}
		return exitOK
	}

	a, closeLog, err := setup(o, dir, stdin, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", paths.BinaryName, err)
		return exitCode(err)
	}
	defer closeLog()

	if o.saveConfig {
		path := o.configPath
		if path == "" {
			path = dir.Config()
		}
		if err := a.cfg.Save(path); err != nil {
			slog.Error("save config failed", "path", path, "error", err)
			fmt.Fprintf(stderr, "%s: %v\n", paths.BinaryName, err)
			return exitFatal
		}
		slog.Info("saved config", "path", path)
		fmt.Fprintf(stdout, "wrote %s\n", path)
		return exitOK
	}

	if err := a.execute(ctx, stdout); err != nil {
		slog.Error("hexswatch failed", "error", err)
		fmt.Fprintf(stderr, "%s: %v\n", paths.BinaryName, err)
		return exitCode(err)
	}
	return exitOK
}

// setup loads configuration, installs the logger as the slog default and
// returns the configured app. The returned func restores the previous
// default logger and closes the log file.
func setup(o *options, dir paths.DataDir, stdin io.Reader, stderr io.Writer) (*app, func(), error) {
	if err := dir.Ensure(); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		if _, statErr := os.Stat(dir.Config()); errors.Is(statErr, os.ErrNotExist) {
			if writeErr := atomicfile.Write(dir.Config(), rootpkg.DefaultConfigTOML, 0o644); writeErr != nil {
				fmt.Fprintf(stderr, "warning: failed to write default config: %v\n", writeErr)
			}
		}
		cfg, err = config.Load(dir.Root)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := o.applyOverrides(cfg); err != nil {
		return nil, nil, err
	}

	stderrLevel := logger.LevelWarn
	if o.verbose {
		stderrLevel = logger.LevelDebug
	}
	log, logCloser, err := logger.New(logger.Options{
		Path:        dir.Log(),
		Level:       logger.ParseLevel(cfg.Log.Level),
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		Stderr:      stderr,
		StderrLevel: stderrLevel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	prev := slog.Default()
	slog.SetDefault(log)
	closeLog := func() {
		slog.SetDefault(prev)
		logCloser.Close()
	}

	srcOpts := cfg.SourceOptions()
	srcOpts.Stdin = stdin
	a := &app{
		cfg:     cfg,
		opts:    o,
		loader:  source.NewLoader(srcOpts),
		scanner: hexcolor.NewScanner(),
	}
	slog.Debug("hexswatch starting", "version", resolveVersion(), "data_dir", dir.Root, "inputs", len(o.inputs))
	return a, closeLog, nil
}

// ///////////////////////////////////////////////
// App
// ///////////////////////////////////////////////

// app carries everything needed to scan inputs and render a palette.
type app struct {
	cfg     *config.Config
	opts    *options
	loader  *source.Loader
	scanner *hexcolor.Scanner
}

// execute resolves inputs, renders once and, in watch mode, keeps
// re-rendering until ctx is cancelled.
func (a *app) execute(ctx context.Context, stdout io.Writer) error {
	ropts := a.cfg.RenderOptions()
	if ropts.Format.Binary() && a.opts.out == "" {
		if _, tty := terminalWidth(stdout); tty {
			return usagef("refusing to write %s output to a terminal; use -out or redirect stdout", ropts.Format)
		}
	}
	if width, ok := terminalWidth(stdout); ok && a.opts.out == "" {
		ropts.Width = width
	}

	refs, err := a.loader.Resolve(a.opts.inputs)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		logger.Trace(slog.Default(), "resolved input", "ref", ref)
	}
	if a.opts.watch {
		for _, ref := range refs {
			if ref == source.StdinRef || source.IsRemote(ref) {
				return usagef("-watch requires local file inputs, got %q", ref)
			}
		}
	}

	entries, err := a.scan(ctx, refs)
	if err != nil {
		return err
	}
	if err := a.emit(stdout, entries, ropts); err != nil {
		return err
	}
	if !a.opts.watch {
		return nil
	}
	return a.watchLoop(ctx, stdout, refs, entries, ropts)
}

// scan loads every reference and aggregates its colors. Inputs that fail to
// load are skipped with a warning; it is an error only when all of them fail.
func (a *app) scan(ctx context.Context, refs []string) ([]palette.Entry, error) {
	p := palette.New()
	failed := 0
	for _, ref := range refs {
		doc, err := a.loader.Load(ctx, ref)
		if err != nil {
			slog.Warn("skipping input", "input", ref, "error", err)
			failed++
			continue
		}
		diags := p.AddDocument(a.scanner, doc.Name, doc.Text)
		slog.Debug("scanned input", "input", doc.Name, "bytes", len(doc.Text), "skipped_matches", len(diags))
	}
	if failed == len(refs) {
		logger.Fail(slog.Default(), "no input could be read", "inputs", len(refs))
		return nil, errAllInputsFailed
	}
	entries := p.Entries(a.cfg.PaletteOptions())
	slog.Debug("palette built", "colors", p.Len(), "shown", len(entries))
	return entries, nil
}

// emit renders entries to stdout or, with -out, atomically to a file.
func (a *app) emit(stdout io.Writer, entries []palette.Entry, ropts render.Options) error {
	if a.opts.out == "" {
		return render.Write(stdout, entries, ropts)
	}
	err := atomicfile.WriteFunc(a.opts.out, 0o644, func(w io.Writer) error {
		return render.Write(w, entries, ropts)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", a.opts.out, err)
	}
	slog.Info("wrote palette", "path", a.opts.out, "colors", len(entries), "format", string(ropts.Format))
	return nil
}

// watchLoop re-scans refs on every change notification and re-renders when
// the palette differs from the last one written.
func (a *app) watchLoop(ctx context.Context, stdout io.Writer, refs []string, last []palette.Entry, ropts render.Options) error {
	w, err := watch.New(refs, a.cfg.PollInterval())
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()
	if w.Polling() {
		slog.Info("using polling mode for file watching")
	}

	lastPrint := palette.Fingerprint(last, ropts.ShowLocations)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("watch stopped")
			return nil
		case <-w.Events():
			entries, err := a.scan(ctx, refs)
			if err != nil {
				slog.Warn("rescan failed", "error", err)
				continue
			}
			fp := palette.Fingerprint(entries, ropts.ShowLocations)
			if fp == lastPrint {
				slog.Debug("palette unchanged")
				continue
			}
			lastPrint = fp
			if err := a.emit(stdout, entries, ropts); err != nil {
				slog.Warn("render failed", "error", err)
			}
		}
	}
}
