package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/hexswatch/internal/config"
	"tools.zach/dev/hexswatch/internal/paths"
)

// syncBuffer is a bytes.Buffer safe for one writer goroutine and concurrent
// readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runCLI invokes run with an isolated data directory.
func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	return runCLIIn(t, t.TempDir(), stdin, args...)
}

func runCLIIn(t *testing.T, dataDir, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-data-dir", dataDir}, args...)
	code = run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// ///////////////////////////////////////////////
// resolveVersion Tests
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "dev"
	if got := resolveVersion(); !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "", "-version")
	if code != exitOK || !strings.HasPrefix(out, "hexswatch ") {
		t.Errorf("code = %d, out = %q", code, out)
	}
}

// ///////////////////////////////////////////////
// Scanning and Output
// ///////////////////////////////////////////////

func TestRun_Stdin(t *testing.T) {
	code, out, errOut := runCLI(t, "a { color: #336699 } b { color: #fff } c { color: #336699 }")
	if code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}
	if out != "#336699\n#FFFFFF\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestRun_Outputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.css"), "x{color:#abc}\ny{color:#000000}")
	writeFile(t, filepath.Join(dir, "sub", "b.scss"), "$brand: #aabbcc;\n")
	glob := filepath.Join(dir, "**", "*.*ss")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"glob text", []string{glob}, "#000000\n#AABBCC\n"},
		{"counts by frequency", []string{"-counts", "-sort", "count", glob}, "#AABBCC\t2\n#000000\t1\n"},
		{"css", []string{"-format", "css", glob}, ":root {\n  --color-1: #000000;\n  --color-2: #AABBCC;\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, "", tt.args...)
			if code != exitOK {
				t.Fatalf("code = %d, stderr = %q", code, errOut)
			}
			if out != tt.want {
				t.Errorf("stdout = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRun_JSONLocations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.css")
	writeFile(t, path, "a{}\nb{color:#123456}")

	code, out, errOut := runCLI(t, "", "-format", "json", "-locations", path)
	if code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}
	var got []struct {
		Hex       string `json:"hex"`
		Locations []struct {
			Source string `json:"source"`
			Line   int    `json:"line"`
			Column int    `json:"column"`
		} `json:"locations"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].Hex != "#123456" || len(got[0].Locations) != 1 || got[0].Locations[0].Line != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestRun_PNGToFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "palette.png")

	code, out, errOut := runCLI(t, "#ff0000 #00ff00 #0000ff", "-format", "png", "-out", outPath)
	if code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}
	if out != "" {
		t.Errorf("stdout should be empty with -out, got %q", out)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 3*160 || cfg.Height != 160 {
		t.Errorf("png size = %dx%d, want 480x160", cfg.Width, cfg.Height)
	}
}

// ///////////////////////////////////////////////
// Errors and Exit Codes
// ///////////////////////////////////////////////

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.css")
	writeFile(t, good, "#abcdef")

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStderr string
	}{
		{"help", []string{"-h"}, exitOK, "Usage: hexswatch"},
		{"unknown flag", []string{"-nope"}, exitUsage, "flag provided but not defined"},
		{"bad format", []string{"-format", "bmp", good}, exitUsage, "output.format"},
		{"bad sort", []string{"-sort", "random", good}, exitUsage, "palette.sort"},
		{"negative columns", []string{"-columns", "-3", good}, exitUsage, "-columns"},
		{"all inputs missing", []string{filepath.Join(dir, "missing.css")}, exitUsage, "skipping input"},
		{"glob without match", []string{filepath.Join(dir, "*.less")}, exitUsage, "matched no files"},
		{"watch stdin", []string{"-watch", "-"}, exitUsage, "-watch requires local file inputs"},
		{"missing explicit config", []string{"-config", filepath.Join(dir, "nope.toml"), good}, exitFatal, "load config"},
		{"empty palette png", []string{"-format", "png", "-out", filepath.Join(dir, "x.png")}, exitFatal, "no colors to render"},
		{"empty palette text", []string{"-format", "text"}, exitOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, "", tt.args...)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d (stderr %q)", code, tt.wantCode, errOut)
			}
			if tt.wantStderr != "" && !strings.Contains(errOut, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", errOut, tt.wantStderr)
			}
		})
	}
}

func TestRun_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.css")
	writeFile(t, good, "#abcdef")

	code, out, errOut := runCLI(t, "", good, filepath.Join(dir, "missing.css"))
	if code != exitOK {
		t.Fatalf("code = %d, want 0 when some inputs load", code)
	}
	if out != "#ABCDEF\n" {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(errOut, "[WARN] skipping input") || !strings.Contains(errOut, "missing.css") {
		t.Errorf("stderr = %q, want a skip warning", errOut)
	}
}

// ///////////////////////////////////////////////
// Config and Logging
// ///////////////////////////////////////////////

func TestRun_FirstRunWritesConfig(t *testing.T) {
	dataDir := t.TempDir()
	code, _, errOut := runCLIIn(t, dataDir, "#fff")
	if code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}

	if _, err := os.Stat(filepath.Join(dataDir, paths.ConfigFile)); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	cfg, err := config.Load(dataDir)
	if err != nil {
		t.Fatalf("written default config does not load: %v", err)
	}
	if cfg.Output.Format != config.DefaultConfig().Output.Format {
		t.Errorf("Format = %q, want default", cfg.Output.Format)
	}
}

func TestRun_ConfigAndFlagPrecedence(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, paths.ConfigFile), `
[palette]
ignore = ["#ffffff"]

[output]
format = "css"
css_prefix = "brand"
`)
	input := "#fff #000 #f00"

	code, out, errOut := runCLIIn(t, dataDir, input)
	if code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}
	if out != ":root {\n  --brand-1: #000000;\n  --brand-2: #FF0000;\n}\n" {
		t.Errorf("config-driven output = %q", out)
	}

	code, out, _ = runCLIIn(t, dataDir, input, "-format", "text")
	if code != exitOK || out != "#000000\n#FF0000\n" {
		t.Errorf("flag override: code = %d, out = %q", code, out)
	}
}

func TestRun_LogTail(t *testing.T) {
	dataDir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "p.txt")
	if code, _, errOut := runCLIIn(t, dataDir, "#123", "-out", outPath); code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}

	code, out, _ := runCLIIn(t, dataDir, "", "-log-tail", "5")
	if code != exitOK {
		t.Fatalf("log-tail code = %d", code)
	}
	if !strings.Contains(out, "wrote palette") {
		t.Errorf("log tail = %q, want the write record", out)
	}
}

func TestRun_VerboseLogsToStderr(t *testing.T) {
	_, _, errOut := runCLI(t, "#123", "-v")
	if !strings.Contains(errOut, "[DEBUG] hexswatch starting") {
		t.Errorf("stderr = %q, want debug output with -v", errOut)
	}
	_, _, errOut = runCLI(t, "#123")
	if strings.Contains(errOut, "[DEBUG]") {
		t.Errorf("stderr = %q, want no debug output without -v", errOut)
	}
}

func TestRun_SaveConfig(t *testing.T) {
	dataDir := t.TempDir()
	code, out, errOut := runCLIIn(t, dataDir, "", "-format", "css", "-sort", "count", "-save-config")
	if code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}
	path := filepath.Join(dataDir, paths.ConfigFile)
	if out != "wrote "+path+"\n" {
		t.Errorf("stdout = %q", out)
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		t.Fatalf("saved config does not load: %v", err)
	}
	if cfg.Output.Format != "css" || cfg.Palette.Sort != "count" {
		t.Errorf("saved format/sort = %q/%q, want css/count", cfg.Output.Format, cfg.Palette.Sort)
	}
	if cfg.Output.TileSize != config.DefaultConfig().Output.TileSize {
		t.Errorf("TileSize = %d, want default kept", cfg.Output.TileSize)
	}

	// A later run without flags picks the saved settings up.
	code, out, _ = runCLIIn(t, dataDir, "#abc")
	if code != exitOK || out != ":root {\n  --color-1: #AABBCC;\n}\n" {
		t.Errorf("code = %d, out = %q", code, out)
	}
}

func TestRun_SaveConfigExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, "[output]\ncolumns = 3\n")

	code, _, errOut := runCLI(t, "", "-config", path, "-counts", "-save-config")
	if code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !cfg.Output.ShowCounts || cfg.Output.Columns != 3 {
		t.Errorf("saved counts/columns = %v/%d, want true/3", cfg.Output.ShowCounts, cfg.Output.Columns)
	}
}

func TestRun_AllInputsFailedLogsFail(t *testing.T) {
	dataDir := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing.css")

	code, _, errOut := runCLIIn(t, dataDir, "", missing)
	if code != exitUsage {
		t.Fatalf("code = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(errOut, "[FAIL] no input could be read | inputs=1") {
		t.Errorf("stderr = %q, want a FAIL record", errOut)
	}
	data, err := os.ReadFile(filepath.Join(dataDir, paths.LogFile))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "[FAIL] no input could be read") {
		t.Errorf("log file = %q, want a FAIL record", data)
	}
}

func TestRun_TraceLogsResolvedInputs(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, paths.ConfigFile), "[log]\nlevel = \"trace\"\n")
	input := filepath.Join(t.TempDir(), "a.css")
	writeFile(t, input, "#fff")

	if code, _, errOut := runCLIIn(t, dataDir, "", input); code != exitOK {
		t.Fatalf("code = %d, stderr = %q", code, errOut)
	}
	data, err := os.ReadFile(filepath.Join(dataDir, paths.LogFile))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "[TRACE] resolved input | ref="+input) {
		t.Errorf("log file = %q, want a TRACE record for the input", data)
	}
}

// ///////////////////////////////////////////////
// Watch Mode
// ///////////////////////////////////////////////

func waitForOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in output %q", want, out.String())
}

func TestRun_Watch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	path := filepath.Join(t.TempDir(), "theme.css")
	writeFile(t, path, "a{color:#111111}")
	dataDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"-data-dir", dataDir, "-watch", path}, strings.NewReader(""), out, io.Discard)
	}()

	waitForOutput(t, out, "#111111")
	time.Sleep(300 * time.Millisecond)

	// Rewriting identical content does not produce new output.
	writeFile(t, path, "a{color:#111111}")
	time.Sleep(300 * time.Millisecond)
	if n := strings.Count(out.String(), "#111111"); n != 1 {
		t.Errorf("unchanged palette rendered %d times, want 1", n)
	}

	writeFile(t, path, "a{color:#222222}")
	waitForOutput(t, out, "#222222")

	cancel()
	select {
	case code := <-done:
		if code != exitOK {
			t.Errorf("watch exit code = %d, want 0", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch mode did not stop after cancel")
	}
}
