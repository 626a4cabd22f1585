package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fwbuild/internal/config"
	fwerrors "git.home.luguber.info/inful/fwbuild/internal/errors"
	"git.home.luguber.info/inful/fwbuild/internal/metrics"
	"git.home.luguber.info/inful/fwbuild/internal/toolchain"
)

// fakeGCC mimics the compiler driver closely enough for pipeline tests:
// compile mode prepends an OBJ marker to the source, link mode concatenates
// its inputs under an ELFHEADER line and writes the requested link map.
const fakeGCC = `#!/bin/sh
out=""
compile=0
map=""
inputs=""
expect_out=0
for arg in "$@"; do
  if [ "$expect_out" = "1" ]; then out="$arg"; expect_out=0; continue; fi
  case "$arg" in
    -c) compile=1 ;;
    -o) expect_out=1 ;;
    -Wl,-Map=*) map="${arg#-Wl,-Map=}" ;;
    -*) ;;
    *) inputs="$inputs $arg" ;;
  esac
done
for f in $inputs; do
  if [ ! -f "$f" ]; then echo "cannot find $f" >&2; exit 1; fi
done
if [ "$compile" = "1" ]; then
  { echo "OBJ"; cat $inputs; } > "$out"
else
  if [ -n "$map" ]; then echo "link map for $out" > "$map"; fi
  { echo "ELFHEADER"; cat $inputs; } > "$out"
fi
exit 0
`

// fakeObjcopy strips the header line, so the raw blob is always smaller
// than the image it came from.
const fakeObjcopy = `#!/bin/sh
in="$3"
out="$4"
tail -n +2 "$in" > "$out"
exit 0
`

type buildEnv struct {
	cfg     *config.Config
	srcDir  string
	appbins string
}

func newBuildEnv(t *testing.T) *buildEnv {
	t.Helper()

	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "test.c"), "int main(void) { return 0; }\n")
	writeFile(t, filepath.Join(srcDir, "link.x"), "MEMORY { FLASH : ORIGIN = 0x0, LENGTH = 256K }\n")
	writeFile(t, filepath.Join(srcDir, "libc_userspace.a"), "!<arch>\nfake archive\n")

	appbins := filepath.Join(t.TempDir(), "appbins")
	require.NoError(t, os.MkdirAll(appbins, 0o750))

	toolDir := t.TempDir()
	gcc := writeTool(t, filepath.Join(toolDir, "fake-gcc"), fakeGCC)
	objcopy := writeTool(t, filepath.Join(toolDir, "fake-objcopy"), fakeObjcopy)

	cfg := &config.Config{
		Toolchain: config.ToolchainConfig{CC: gcc, Objcopy: objcopy},
		Apps: []config.App{{
			Name:         "test",
			Source:       filepath.Join(srcDir, "test.c"),
			LinkerScript: "link.x",
			Libraries:    []string{"libc_userspace.a"},
		}},
		Output: config.OutputConfig{
			AppbinsDir: appbins,
			Workspace:  t.TempDir(),
		},
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	return &buildEnv{cfg: cfg, srcDir: srcDir, appbins: appbins}
}

func (e *buildEnv) builder(t *testing.T) *Builder {
	t.Helper()
	tc, err := toolchain.Resolve(e.cfg.Toolchain)
	require.NoError(t, err)
	b, err := NewBuilder(e.cfg, tc, metrics.NoopRecorder{})
	require.NoError(t, err)
	return b
}

func TestBuilder_FullPipelineInstallsBinary(t *testing.T) {
	env := newBuildEnv(t)
	b := env.builder(t)

	reports, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	m := reports[0].Manifest
	assert.Equal(t, "test", m.App)
	for _, role := range []string{"object", "image", "map", "binary", "installed"} {
		assert.Contains(t, m.Artifacts, role, "manifest should describe the %s artifact", role)
	}

	installed := filepath.Join(env.appbins, "test.bin")
	data, err := os.ReadFile(installed)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// Raw extraction strips the image header, so the blob is strictly
	// smaller than the ELF image.
	assert.Less(t, m.Artifacts["binary"].Size, m.Artifacts["image"].Size)
	assert.Equal(t, m.Artifacts["binary"].SHA256, m.Artifacts["installed"].SHA256)

	require.Len(t, reports[0].Stages, 4)
	for _, stage := range reports[0].Stages {
		assert.Equal(t, metrics.ResultSuccess, stage.Result, "stage %s", stage.Stage)
	}
}

func TestBuilder_RepeatedBuildsAreByteIdentical(t *testing.T) {
	env := newBuildEnv(t)
	b := env.builder(t)

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(env.appbins, "test.bin"))
	require.NoError(t, err)

	_, err = b.BuildAll(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(env.appbins, "test.bin"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuilder_MissingLibraryFailsLinkStage(t *testing.T) {
	env := newBuildEnv(t)
	require.NoError(t, os.Remove(filepath.Join(env.srcDir, "libc_userspace.a")))
	b := env.builder(t)

	reports, err := b.BuildAll(context.Background())
	require.Error(t, err)
	assert.True(t, fwerrors.IsCategory(err, fwerrors.CategoryLink))

	require.Len(t, reports, 1)
	m := reports[0].Manifest
	assert.NotContains(t, m.Artifacts, "image")
	assert.NotContains(t, m.Artifacts, "binary")
	assert.NoFileExists(t, filepath.Join(env.appbins, "test.bin"))
}

func TestBuilder_MissingLinkerScriptFailsLinkStage(t *testing.T) {
	env := newBuildEnv(t)
	require.NoError(t, os.Remove(filepath.Join(env.srcDir, "link.x")))
	b := env.builder(t)

	_, err := b.BuildAll(context.Background())
	require.Error(t, err)
	assert.True(t, fwerrors.IsCategory(err, fwerrors.CategoryLink))
	assert.NoFileExists(t, filepath.Join(env.appbins, "test.bin"))
}

func TestBuilder_MissingAppbinsDirFailsInstall(t *testing.T) {
	env := newBuildEnv(t)
	require.NoError(t, os.RemoveAll(env.appbins))
	b := env.builder(t)

	reports, err := b.BuildAll(context.Background())
	require.Error(t, err)
	assert.True(t, fwerrors.IsCategory(err, fwerrors.CategoryInstall))

	// Everything upstream still ran; only install failed.
	require.Len(t, reports, 1)
	assert.Contains(t, reports[0].Manifest.Artifacts, "binary")
}

func TestBuilder_CompileFailureSkipsDownstreamStages(t *testing.T) {
	env := newBuildEnv(t)
	failing := writeTool(t, filepath.Join(t.TempDir(), "broken-gcc"),
		"#!/bin/sh\necho 'test.c:1: error: nope' >&2\nexit 1\n")
	env.cfg.Toolchain.CC = failing
	b := env.builder(t)

	reports, err := b.BuildAll(context.Background())
	require.Error(t, err)
	assert.True(t, fwerrors.IsCategory(err, fwerrors.CategoryCompile))

	require.Len(t, reports, 1)
	stages := reports[0].Stages
	require.Len(t, stages, 4)
	assert.Equal(t, metrics.ResultFatal, stages[0].Result)
	for _, stage := range stages[1:] {
		assert.Equal(t, metrics.ResultSkipped, stage.Result, "stage %s", stage.Stage)
	}
	assert.NoFileExists(t, filepath.Join(env.appbins, "test.bin"))
}

func TestBuilder_KeepMapPreservesLinkMap(t *testing.T) {
	env := newBuildEnv(t)
	artifactsDir := filepath.Join(t.TempDir(), "artifacts")
	env.cfg.Output.ArtifactsDir = artifactsDir
	env.cfg.Output.KeepMap = true
	env.cfg.Output.KeepELF = true
	b := env.builder(t)

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(artifactsDir, "test.map"))
	assert.FileExists(t, filepath.Join(artifactsDir, "test.elf"))
}

func TestBuilder_RelativeArtifactsDirAnchorsOnSourceDir(t *testing.T) {
	env := newBuildEnv(t)
	env.cfg.Output.ArtifactsDir = "artifacts"
	env.cfg.Output.KeepMap = true
	b := env.builder(t)

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	// Relative to the app's source directory, never the process cwd.
	assert.FileExists(t, filepath.Join(env.srcDir, "artifacts", "test.map"))
	assert.NoDirExists(t, "artifacts")
}

func TestDiagnosticsDir(t *testing.T) {
	srcDir := t.TempDir()
	app := config.App{Name: "test", Source: filepath.Join(srcDir, "test.c")}

	cfg := &config.Config{}
	dir, err := DiagnosticsDir(cfg, app)
	require.NoError(t, err)
	assert.Equal(t, srcDir, dir, "no artifacts dir configured: diagnostics sit next to the source")

	cfg.Output.ArtifactsDir = "artifacts"
	dir, err = DiagnosticsDir(cfg, app)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(srcDir, "artifacts"), dir)

	abs := t.TempDir()
	cfg.Output.ArtifactsDir = abs
	dir, err = DiagnosticsDir(cfg, app)
	require.NoError(t, err)
	assert.Equal(t, abs, dir)
}

func TestBuilder_ScratchDirRemovedAfterBuild(t *testing.T) {
	env := newBuildEnv(t)
	b := env.builder(t)

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(env.cfg.Output.Workspace)
	require.NoError(t, err)
	assert.Empty(t, entries, "ephemeral scratch dirs must be cleaned up")
}

func TestBuilder_UnknownSourceFails(t *testing.T) {
	env := newBuildEnv(t)
	env.cfg.Apps[0].Source = filepath.Join(env.srcDir, "missing.c")
	b := env.builder(t)

	_, err := b.BuildAll(context.Background())
	require.Error(t, err)
	assert.True(t, fwerrors.IsCategory(err, fwerrors.CategoryValidation))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeTool(t *testing.T, path, script string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
