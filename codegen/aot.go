package codegen

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/pkg/errors"
)

// AOTOptions configures AOTLink's invocation of the system C compiler
// (§6.3's "AOT linker wrapper: invokes system C compiler to link
// emitted object with runtime static library").
type AOTOptions struct {
	// ObjectPath is the compiled object file (produced upstream by
	// handing this package's *ir.Module to an LLVM object emitter,
	// itself out of scope for this repository per §1).
	ObjectPath string
	// RuntimeLibPath is the path to the runtime static library
	// (libnamlrt.a or similar) built from the runtime package.
	RuntimeLibPath string
	// OutputPath is the final linked executable.
	OutputPath string
	// CC overrides the system C compiler; defaults to $CC or "cc".
	CC string
	// GOOS overrides the detected platform for selecting whole-archive
	// vs. -force_load linking and the required system libraries;
	// defaults to runtime.GOOS.
	GOOS string
}

// cCompiler resolves which C compiler binary to invoke.
func cCompiler(opt AOTOptions) string {
	if opt.CC != "" {
		return opt.CC
	}
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	return "cc"
}

// BuildArgs constructs the argv a real invocation of AOTLink would
// pass to the system C compiler, split out so tests can assert on the
// exact flag sequence without actually shelling out (§6.3's
// platform-dependent whole-archive / -force_load / required system
// library list).
func BuildArgs(opt AOTOptions) []string {
	goos := opt.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	args := []string{opt.ObjectPath}

	switch goos {
	case "darwin":
		args = append(args,
			"-Wl,-force_load,"+opt.RuntimeLibPath,
			"-framework", "CoreFoundation",
			"-framework", "Security",
			"-framework", "SystemConfiguration",
			"-liconv",
		)
	default: // linux and linux-like targets
		args = append(args,
			"-Wl,--whole-archive", opt.RuntimeLibPath, "-Wl,--no-whole-archive",
			"-lpthread", "-ldl", "-lm",
		)
	}

	args = append(args, "-o", opt.OutputPath)
	return args
}

// AOTLink shells out to the system C compiler to link opt.ObjectPath
// against opt.RuntimeLibPath into opt.OutputPath, force-loading the
// runtime archive so its symbols survive the linker's dead-code
// stripping even though nothing in the object file directly
// references most of them (§6.3).
func AOTLink(opt AOTOptions) error {
	cc := cCompiler(opt)
	args := BuildArgs(opt)

	cmd := exec.Command(cc, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "codegen: %s %v", cc, args)
	}
	return nil
}
