package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	naml "github.com/kahflane/naml-sub003"
	"github.com/kahflane/naml-sub003/codegen"
)

const defaultWritePermission = 0644 // -rw-r--r--

func main() {
	var (
		inputPath  = flag.String("input", "", "Path to the JSON-encoded AST to compile")
		outputPath = flag.String("output", "/dev/stdout", "Path to the output file")
		emit       = flag.String("emit", "llvm", "Output format: llvm, c, or disasm")
	)
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("Input not informed")
	}

	astData, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Can't read input file: %s", err.Error())
	}

	interner := naml.NewInterner()
	items, err := naml.DecodeItems(astData, interner)
	if err != nil {
		log.Fatalf("Can't decode AST: %s", err.Error())
	}

	db := naml.NewTypeDatabase()

	var outputData string
	switch *emit {
	case "llvm":
		program, err := codegen.LowerProgram(items, db, interner)
		if err != nil {
			log.Fatalf("Can't emit code: %s", err.Error())
		}
		outputData = program.Module.String()
	case "disasm":
		program, err := codegen.LowerProgram(items, db, interner)
		if err != nil {
			log.Fatalf("Can't emit code: %s", err.Error())
		}
		linker := codegen.NewJITLinker(program.Module, program.Symbols)
		outputData = linker.Disassemble()
	case "c":
		outputData, err = codegen.TranspileToC(items, interner, codegen.TranspileOptions{})
		if err != nil {
			log.Fatalf("Can't emit code: %s", err.Error())
		}
	default:
		log.Fatalf("Output format `%s` not supported", *emit)
	}

	if err := os.WriteFile(*outputPath, []byte(outputData), defaultWritePermission); err != nil {
		log.Fatalf("Can't write output: %s", err.Error())
	}
	fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(outputData), *outputPath)
}
