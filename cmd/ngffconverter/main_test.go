package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ngffconverter/internal/config"
	"ngffconverter/internal/testsupport"
)

// stubBioformats2Raw writes a minimal zarr group at its last argument and
// emits progress events. Inputs whose path contains "bad" fail like an
// unsupported file would.
const stubBioformats2Raw = `#!/bin/sh
for last; do :; done
case "$*" in
  *bad*) echo "unsupported pixel type"; exit 3 ;;
esac
mkdir -p "$last"
printf '{"zarr_format":2}' > "$last/.zgroup"
echo '{"event":"start","series_count":1,"chunk_count":2}'
echo '{"event":"chunk_end","chunk":0}'
echo '{"event":"chunk_end","chunk":1}'
`

const stubRaw2OmeTiff = `#!/bin/sh
for last; do :; done
printf 'II*' > "$last"
echo '{"event":"start","series_count":1,"chunk_count":1}'
echo '{"event":"series_end","series":0}'
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	inputDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("NGFF_BIOFORMATS2RAW", "")
	t.Setenv("NGFF_RAW2OMETIFF", "")

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	binDir := filepath.Join(base, "bin")
	cfg.Converters.Bioformats2Raw = writeStub(t, binDir, "bioformats2raw", stubBioformats2Raw)
	cfg.Converters.Raw2OmeTiff = writeStub(t, binDir, "raw2ometiff", stubRaw2OmeTiff)
	cfg.Converters.InterruptGraceSeconds = 1
	cfg.Logging.Level = "error"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		inputDir:   filepath.Join(base, "in"),
	}
}

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) input(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(env.inputDir, name)
	testsupport.WriteFile(t, path, 128)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func requireExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func requireMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent, stat err = %v", path, err)
	}
}

func TestRootHelp(t *testing.T) {
	out, _, err := runCLI(t, nil, "")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"convert", "check", "history", "staging", "config"} {
		requireContains(t, out, name)
	}
}
