// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ezrec/y86sim/cpu"
	"github.com/ezrec/y86sim/emulator"
	"github.com/ezrec/y86sim/mem"
)

func main() {
	var compile string
	var save bool
	var input string
	var output string
	var cacheSize int
	var lineSize int
	var verbose bool

	flag.StringVar(&compile, "c", "", ".ys file to assemble")
	flag.BoolVar(&save, "s", false, "Print the assembled image, do not execute")
	flag.StringVar(&input, "i", "-", "Program image input")
	flag.StringVar(&output, "o", "-", "Trace output")
	flag.IntVar(&cacheSize, "cache", mem.CACHE_SIZE_DEFAULT, "Cache capacity in bytes (power of two)")
	flag.IntVar(&lineSize, "line", mem.CACHE_LINE_DEFAULT, "Cache line size in bytes (power of two)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	out := os.Stdout
	if output != "-" {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		out = ouf
	}

	// Program image: either assembled from source, or read as-is.
	var image io.Reader
	if compile != "" {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		img, err := asm.Assemble(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		if save {
			err = img.Render(out)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
			return
		}

		image = img.Reader()
	} else {
		if input == "-" {
			image = os.Stdin
		} else {
			inf, err := os.Open(input)
			if err != nil {
				log.Fatalf("%v: %v", input, err)
			}
			defer inf.Close()
			image = inf
		}
	}

	emu, err := emulator.NewEmulatorWithCache(cacheSize, lineSize)
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
	emu.Verbose = verbose

	// A load failure is the only non-zero exit; execution faults are
	// reported inside the trace.
	err = emu.Load(image)
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	trace := emu.RunToHalt()

	text, err := json.MarshalIndent(trace, "", "    ")
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	fmt.Fprintln(out, string(text))
}
