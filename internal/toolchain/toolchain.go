// Package toolchain locates and invokes the cross-compiler toolchain
// (compiler driver and objcopy) for the target profile.
package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/fwbuild/internal/config"
)

// Toolchain holds resolved paths to the cross tools.
type Toolchain struct {
	CC      string // compiler driver, also used for linking
	Objcopy string

	// Observe, when set, receives the duration of every tool invocation.
	Observe func(tool string, d time.Duration)
}

// Resolve locates the toolchain binaries on PATH (or uses explicit paths
// from config). Both tools must be present before any stage runs, so a
// missing toolchain fails the build up front rather than mid-pipeline.
func Resolve(cfg config.ToolchainConfig) (*Toolchain, error) {
	cc := cfg.CC
	if cc == "" {
		cc = cfg.Prefix + "gcc"
	}
	objcopy := cfg.Objcopy
	if objcopy == "" {
		objcopy = cfg.Prefix + "objcopy"
	}

	ccPath, err := exec.LookPath(cc)
	if err != nil {
		return nil, fmt.Errorf("compiler %q not found on PATH: %w", cc, err)
	}
	objcopyPath, err := exec.LookPath(objcopy)
	if err != nil {
		return nil, fmt.Errorf("objcopy %q not found on PATH: %w", objcopy, err)
	}

	return &Toolchain{CC: ccPath, Objcopy: objcopyPath}, nil
}

// Version probes the compiler for its version banner (first line of
// `cc --version`). Used by the discover command; failures are non-fatal.
func (t *Toolchain) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, t.CC, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("probe compiler version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
