package covers

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CompilerName is the Playdate compiler binary the pipeline shells out
// to.
const CompilerName = "pdc"

// placeholderSource is written into the staging directory so pdc
// accepts it as a buildable program. Its content never runs.
const placeholderSource = "main.lua"

// ErrCompilerNotFound means pdc is not installed or not in PATH.
var ErrCompilerNotFound = errors.New("covers: pdc not found in PATH")

// CompileError wraps a failed pdc invocation together with whatever
// the compiler printed.
type CompileError struct {
	Output []byte
	Err    error
}

func (e *CompileError) Error() string {
	if out := bytes.TrimSpace(e.Output); len(out) > 0 {
		return fmt.Sprintf("pdc: %v: %s", e.Err, out)
	}
	return fmt.Sprintf("pdc: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LookupCompiler returns the path to the pdc binary, or
// ErrCompilerNotFound. Callers run this before any conversion work so
// a missing compiler fails fast with nothing to clean up.
func LookupCompiler() (string, error) {
	path, err := exec.LookPath(CompilerName)
	if err != nil {
		return "", ErrCompilerNotFound
	}
	return path, nil
}

// Compile invokes pdc once over stagingDir and returns the package
// directory it produced. The placeholder program source is written
// first; pdc refuses directories that don't look like a program.
func (c *Converter) Compile(stagingDir string) (string, error) {
	pdc, err := LookupCompiler()
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(stagingDir, placeholderSource), []byte("-- placeholder so pdc treats this directory as a program\n"), 0o644); err != nil {
		return "", err
	}

	pdxDir := strings.TrimSuffix(stagingDir, string(os.PathSeparator)) + PackageExt

	c.logger.Printf("compiling %s -> %s", stagingDir, pdxDir)

	cmd := exec.Command(pdc, stagingDir, pdxDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &CompileError{Output: out, Err: err}
	}

	return pdxDir, nil
}
