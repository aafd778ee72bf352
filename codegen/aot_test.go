package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgsDarwinUsesForceLoadAndFrameworks(t *testing.T) {
	args := BuildArgs(AOTOptions{
		ObjectPath:     "out.o",
		RuntimeLibPath: "libnamlrt.a",
		OutputPath:     "a.out",
		GOOS:           "darwin",
	})
	assert.Contains(t, args, "-Wl,-force_load,libnamlrt.a")
	assert.Contains(t, args, "CoreFoundation")
	assert.NotContains(t, args, "-Wl,--whole-archive")
	assert.Equal(t, "out.o", args[0])
	assert.Equal(t, "a.out", args[len(args)-1])
	assert.Equal(t, "-o", args[len(args)-2])
}

func TestBuildArgsLinuxUsesWholeArchive(t *testing.T) {
	args := BuildArgs(AOTOptions{
		ObjectPath:     "out.o",
		RuntimeLibPath: "libnamlrt.a",
		OutputPath:     "a.out",
		GOOS:           "linux",
	})
	assert.Contains(t, args, "-Wl,--whole-archive")
	assert.Contains(t, args, "-Wl,--no-whole-archive")
	assert.Contains(t, args, "-lpthread")
	assert.NotContains(t, args, "-Wl,-force_load,libnamlrt.a")
}

func TestCCompilerPrefersExplicitOverride(t *testing.T) {
	assert.Equal(t, "clang", cCompiler(AOTOptions{CC: "clang"}))
}

func TestCCompilerFallsBackToDefault(t *testing.T) {
	t.Setenv("CC", "")
	assert.Equal(t, "cc", cCompiler(AOTOptions{}))
}
