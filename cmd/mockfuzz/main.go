package main

// mock the InterFuzz generator. Point JAVA_BIN at this binary to run batches
// without a JDK.

import (
	"batchgen/internal/utils"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
)

type toolOptions struct {
	SeedsPath  string `long:"seeds_path" required:"true" description:"directory holding the seed files"`
	TargetSeed string `long:"target_seed" required:"true" description:"seed name without extension"`
	MaxIter    int    `long:"max_iter" default:"1" description:"number of iteration folders to write"`
	JDK        string `long:"jdk" description:"ignored"`
}

// stripJar drops the leading `-jar <path>` pair java would consume.
func stripJar(args []string) []string {
	if len(args) >= 2 && args[0] == "-jar" {
		return args[2:]
	}
	return args
}

// failingSeeds lists the seeds named in MOCKFUZZ_FAIL, comma separated.
func failingSeeds() []string {
	raw := os.Getenv("MOCKFUZZ_FAIL")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// generate writes <mutants>/<seed>_<id>/<0..max_iter-1>/ each holding a copy
// of the seed file, and returns the folder it created.
func generate(opts toolOptions, mutantsDir string, out io.Writer) (string, error) {
	if opts.MaxIter < 1 {
		return "", errors.New("max_iter must be positive")
	}
	matches, err := filepath.Glob(filepath.Join(opts.SeedsPath, opts.TargetSeed+".*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("seed %s not found in %s", opts.TargetSeed, opts.SeedsPath)
	}
	seedFile := matches[0]

	folder := filepath.Join(mutantsDir, opts.TargetSeed+"_"+uuid.New().String()[:8])
	for i := 0; i < opts.MaxIter; i++ {
		dir := filepath.Join(folder, fmt.Sprint(i))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		if err := utils.CopyFile(seedFile, filepath.Join(dir, filepath.Base(seedFile))); err != nil {
			return "", err
		}
		fmt.Fprintf(out, "iteration %d/%d done\n", i+1, opts.MaxIter)
	}
	return folder, nil
}

func main() {
	var opts toolOptions
	args, err := flags.NewParser(&opts, flags.Default).ParseArgs(stripJar(os.Args[1:]))
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", args)
		os.Exit(2)
	}

	if slices.Contains(failingSeeds(), opts.TargetSeed) {
		fmt.Fprintf(os.Stderr, "mutation of %s failed\n", opts.TargetSeed)
		os.Exit(1)
	}

	mutantsDir := os.Getenv("MUTANTS_DIR")
	if mutantsDir == "" {
		mutantsDir = "mutants"
	}
	folder, err := generate(opts, mutantsDir, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mock generator: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("mutants written to %s\n", folder)
}
