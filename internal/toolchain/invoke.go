package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/config"
)

// CompileJob describes a single compile-stage invocation: one source file
// compiled to one relocatable object with the fixed target profile.
type CompileJob struct {
	Source      string
	Object      string
	Target      config.TargetConfig
	ExtraCFlags []string
}

// LinkJob describes a link-stage invocation: object plus static archives
// linked through the compiler driver with no start files.
type LinkJob struct {
	Object       string
	Libraries    []string
	LinkerScript string
	Output       string
	MapFile      string
	ExtraLDFlags []string
}

// ExtractJob describes the objcopy invocation stripping an ELF image down
// to a raw binary blob.
type ExtractJob struct {
	Input  string
	Output string
}

// CompileArgs builds the compiler argv for a compile job. Pure function so
// the flag profile is unit-testable without a toolchain installed.
func CompileArgs(job CompileJob) []string {
	args := []string{"-std=" + job.Target.Std}
	if job.Target.Thumb == nil || *job.Target.Thumb {
		args = append(args, "-mthumb")
	}
	args = append(args,
		"-mcpu="+job.Target.CPU,
		"-mfloat-abi="+job.Target.FloatABI,
	)
	if job.Target.FPU != "" {
		args = append(args, "-mfpu="+job.Target.FPU)
	}
	args = append(args, job.Target.ExtraCFlags...)
	args = append(args, job.ExtraCFlags...)
	args = append(args, "-c", job.Source, "-o", job.Object)
	return args
}

// LinkArgs builds the link-driver argv: fully static, no C-runtime start
// files, explicit linker script, link map emitted alongside the image.
func LinkArgs(job LinkJob) []string {
	args := []string{
		"-static",
		"-nostartfiles",
		"-T" + job.LinkerScript,
		"-Wl,-Map=" + job.MapFile,
	}
	args = append(args, job.ExtraLDFlags...)
	args = append(args, job.Object)
	args = append(args, job.Libraries...)
	args = append(args, "-o", job.Output)
	return args
}

// ExtractArgs builds the objcopy argv selecting raw binary output.
func ExtractArgs(job ExtractJob) []string {
	return []string{"-O", "binary", job.Input, job.Output}
}

// Compile runs the compile stage invocation in dir.
func (t *Toolchain) Compile(ctx context.Context, dir string, job CompileJob) error {
	return t.run(ctx, dir, t.CC, CompileArgs(job))
}

// Link runs the link stage invocation in dir.
func (t *Toolchain) Link(ctx context.Context, dir string, job LinkJob) error {
	return t.run(ctx, dir, t.CC, LinkArgs(job))
}

// Extract runs the objcopy invocation in dir.
func (t *Toolchain) Extract(ctx context.Context, dir string, job ExtractJob) error {
	return t.run(ctx, dir, t.Objcopy, ExtractArgs(job))
}

// stderrTailLimit bounds how much tool output is attached to an error.
const stderrTailLimit = 4096

// ToolError reports a failed tool invocation with its exit code and the
// tail of its stderr, so the tool's own diagnostics reach the user.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

func (t *Toolchain) run(ctx context.Context, dir, tool string, args []string) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if t.Observe != nil {
		t.Observe(filepath.Base(tool), time.Since(start))
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", tool, ctx.Err())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &ToolError{
				Tool:     tool,
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   tail(stderr.String(), stderrTailLimit),
			}
		}
		return fmt.Errorf("run %s: %w", tool, err)
	}
	return nil
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
