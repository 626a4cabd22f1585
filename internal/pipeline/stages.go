package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/fwbuild/internal/artifact"
	"git.home.luguber.info/inful/fwbuild/internal/config"
	fwerrors "git.home.luguber.info/inful/fwbuild/internal/errors"
	"git.home.luguber.info/inful/fwbuild/internal/toolchain"
)

// resolvePath resolves p against base unless p is already absolute.
func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// DiagnosticsDir returns where preserved diagnostics (link map, ELF image)
// land for an app: output.artifacts_dir resolved against the app's source
// directory, or the source directory itself when none is configured. The
// clean command relies on resolving this identically to the install stage.
func DiagnosticsDir(cfg *config.Config, app config.App) (string, error) {
	sourceDir, err := filepath.Abs(filepath.Dir(app.Source))
	if err != nil {
		return "", fwerrors.WorkspaceError("resolve source dir", err)
	}
	return resolvePath(sourceDir, cfg.Output.ArtifactsDir), nil
}

// attachToolContext copies tool diagnostics onto a structured error.
func attachToolContext(be *fwerrors.BuildError, err error) *fwerrors.BuildError {
	if te, ok := err.(*toolchain.ToolError); ok {
		be = be.WithContext("tool", te.Tool).WithContext("exit_code", te.ExitCode)
		if te.Stderr != "" {
			be = be.WithContext("stderr", te.Stderr)
		}
	}
	return be
}

// CompileStage invokes the cross compiler on the app source, producing a
// relocatable object in the scratch directory.
type CompileStage struct{}

func (CompileStage) Name() StageName           { return StageCompile }
func (CompileStage) Dependencies() []StageName { return nil }

func (CompileStage) Execute(ctx context.Context, bc *BuildContext) error {
	job := toolchain.CompileJob{
		Source:      filepath.Join(bc.SourceDir, filepath.Base(bc.App.Source)),
		Object:      bc.Paths.Object,
		Target:      bc.Config.Target,
		ExtraCFlags: bc.App.ExtraCFlags,
	}
	if err := bc.Toolchain.Compile(ctx, bc.SourceDir, job); err != nil {
		return attachToolContext(fwerrors.CompileFailed(bc.App.Name, err), err)
	}
	return bc.Manifest.Add("object", bc.Paths.Object)
}

// LinkStage links the object with the app's static libraries through the
// compiler driver, producing the ELF image and a link map.
type LinkStage struct{}

func (LinkStage) Name() StageName           { return StageLink }
func (LinkStage) Dependencies() []StageName { return []StageName{StageCompile} }

func (LinkStage) Execute(ctx context.Context, bc *BuildContext) error {
	script := resolvePath(bc.SourceDir, bc.App.LinkerScript)
	if _, err := os.Stat(script); err != nil {
		return fwerrors.LinkFailed(bc.App.Name, fmt.Errorf("linker script: %w", err)).
			WithContext("linker_script", script)
	}

	libs := make([]string, 0, len(bc.App.Libraries))
	for _, lib := range bc.App.Libraries {
		resolved := resolvePath(bc.SourceDir, lib)
		if _, err := os.Stat(resolved); err != nil {
			return fwerrors.LinkFailed(bc.App.Name, fmt.Errorf("static library: %w", err)).
				WithContext("library", resolved)
		}
		libs = append(libs, resolved)
	}

	job := toolchain.LinkJob{
		Object:       bc.Paths.Object,
		Libraries:    libs,
		LinkerScript: script,
		Output:       bc.Paths.Image,
		MapFile:      bc.Paths.MapFile,
		ExtraLDFlags: bc.App.ExtraLDFlags,
	}
	if err := bc.Toolchain.Link(ctx, bc.SourceDir, job); err != nil {
		return attachToolContext(fwerrors.LinkFailed(bc.App.Name, err), err)
	}

	if err := bc.Manifest.Add("image", bc.Paths.Image); err != nil {
		return err
	}
	// The link map is diagnostic; a missing map is a tool quirk, not a failure.
	if _, err := os.Stat(bc.Paths.MapFile); err == nil {
		if err := bc.Manifest.Add("map", bc.Paths.MapFile); err != nil {
			return err
		}
	}
	return nil
}

// ExtractStage strips the ELF image down to a raw binary blob via objcopy.
type ExtractStage struct{}

func (ExtractStage) Name() StageName           { return StageExtract }
func (ExtractStage) Dependencies() []StageName { return []StageName{StageLink} }

func (ExtractStage) Execute(ctx context.Context, bc *BuildContext) error {
	job := toolchain.ExtractJob{
		Input:  bc.Paths.Image,
		Output: bc.Paths.Binary,
	}
	if err := bc.Toolchain.Extract(ctx, bc.SourceDir, job); err != nil {
		return attachToolContext(fwerrors.ExtractFailed(bc.App.Name, err), err)
	}
	return bc.Manifest.Add("binary", bc.Paths.Binary)
}

// InstallStage copies the raw binary into the downstream appbins directory
// and optionally preserves the map/ELF for inspection. The appbins directory
// is the kernel build's contract; it must already exist.
type InstallStage struct{}

func (InstallStage) Name() StageName           { return StageInstall }
func (InstallStage) Dependencies() []StageName { return []StageName{StageExtract} }

func (InstallStage) Execute(ctx context.Context, bc *BuildContext) error {
	appbins := resolvePath(bc.SourceDir, bc.Config.Output.AppbinsDir)
	info, err := os.Stat(appbins)
	if err != nil {
		return fwerrors.InstallFailed(bc.App.Name, appbins,
			fmt.Errorf("appbins directory not available: %w", err))
	}
	if !info.IsDir() {
		return fwerrors.InstallFailed(bc.App.Name, appbins,
			fmt.Errorf("appbins path is not a directory"))
	}

	dest := filepath.Join(appbins, filepath.Base(bc.Paths.Binary))
	if err := artifact.CopyFile(bc.Paths.Binary, dest); err != nil {
		return fwerrors.InstallFailed(bc.App.Name, dest, err)
	}
	if err := bc.Manifest.Add("installed", dest); err != nil {
		return err
	}

	return bc.preserveDiagnostics()
}

// preserveDiagnostics copies the link map and/or ELF image out of the
// scratch directory before cleanup, per output config. With no artifacts
// dir configured they land next to the app source, where the historical
// build script left them.
func (bc *BuildContext) preserveDiagnostics() error {
	if !bc.Config.Output.KeepMap && !bc.Config.Output.KeepELF {
		return nil
	}

	destDir, err := DiagnosticsDir(bc.Config, bc.App)
	if err != nil {
		return err
	}
	if bc.Config.Output.ArtifactsDir != "" {
		if err := os.MkdirAll(destDir, 0o750); err != nil {
			return fwerrors.WorkspaceError("create artifacts dir", err)
		}
	}

	if bc.Config.Output.KeepMap {
		if _, err := os.Stat(bc.Paths.MapFile); err == nil {
			dest := filepath.Join(destDir, filepath.Base(bc.Paths.MapFile))
			if err := artifact.CopyFile(bc.Paths.MapFile, dest); err != nil {
				return fwerrors.WorkspaceError("preserve link map", err)
			}
		}
	}
	if bc.Config.Output.KeepELF {
		dest := filepath.Join(destDir, filepath.Base(bc.Paths.Image))
		if err := artifact.CopyFile(bc.Paths.Image, dest); err != nil {
			return fwerrors.WorkspaceError("preserve elf image", err)
		}
	}
	return nil
}
