package runner

import (
	"batchgen/config"
	"batchgen/internal/types"
	"batchgen/pkg/runlog"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// pipeWaitDelay bounds how long Wait keeps copying output after the tool was
// killed or exited while descendants still hold its stdout or stderr.
const pipeWaitDelay = 2 * time.Second

// Runner executes the external generation tool once. It never retries.
type Runner interface {
	Invoke(ctx context.Context, params types.InvocationParams, transcript *runlog.Transcript) types.InvocationResult
}

// FailurePredicate decides whether captured output signals a failure even
// when the process exited with code 0.
type FailurePredicate func(output string) bool

// ContainsFailureMarker flags output that mentions "fail" or "error" in any case.
func ContainsFailureMarker(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "fail") || strings.Contains(lower, "error")
}

// JarRunner runs `<java> -jar <jar> ...` inside the backend working directory.
type JarRunner struct {
	JavaBin   string
	JDKPath   string        // handed to the tool as --jdk
	WorkDir   string        // the tool resolves its scratch dir relative to this
	Timeout   time.Duration // zero means wait forever
	IsFailure FailurePredicate

	logger *zap.Logger
}

func NewJarRunner(appConfig *config.AppConfig, logger *zap.Logger) *JarRunner {
	return &JarRunner{
		JavaBin:   appConfig.JavaBin,
		JDKPath:   appConfig.JDKPath,
		WorkDir:   appConfig.BackendDir,
		Timeout:   appConfig.Runner.InvocationTimeout,
		IsFailure: ContainsFailureMarker,
		logger:    logger,
	}
}

// BuildArgs builds the java command line arguments for one invocation.
func BuildArgs(params types.InvocationParams, jdkPath string) []string {
	return []string{
		"-jar", params.JarPath,
		"--seeds_path", params.SeedsDir,
		"--target_seed", params.TargetSeed,
		"--max_iter", strconv.Itoa(params.Iterations),
		"--jdk", jdkPath,
	}
}

// Invoke spawns the tool and blocks until it exits. Output is teed into the
// transcript as it arrives and accumulated for the failure predicate.
func (r *JarRunner) Invoke(ctx context.Context, params types.InvocationParams, transcript *runlog.Transcript) types.InvocationResult {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := BuildArgs(params, r.JDKPath)
	cmd := exec.CommandContext(ctx, r.JavaBin, args...)
	cmd.Dir = r.WorkDir
	cmd.Env = os.Environ()
	killGroupOnCancel(cmd)
	cmd.WaitDelay = pipeWaitDelay

	cmdStr := r.JavaBin + " " + strings.Join(args, " ")
	transcript.Banner("=", fmt.Sprintf("Running: %s\nWorking directory: %s", cmdStr, r.WorkDir))
	transcript.Println("")
	r.log().Info("executing external tool",
		zap.String("command", cmdStr),
		zap.String("working_dir", r.WorkDir),
		zap.String("seed", params.TargetSeed),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdout, transcript)
	cmd.Stderr = io.MultiWriter(&stderr, transcript)

	err := cmd.Run()
	output := stdout.String() + stderr.String()
	result := types.InvocationResult{
		Output:         output,
		HasErrorMarker: r.isFailure(output),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.Is(err, exec.ErrWaitDelay):
		// exited cleanly, a leftover descendant kept the pipes open
		result.ExitCode = cmd.ProcessState.ExitCode()
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		// the process never started or could not be waited on
		result.ExitCode = -1
		result.Err = err
		diagnostic := fmt.Sprintf("Error: failed to run %s: %v", r.JavaBin, err)
		result.Output += diagnostic
		transcript.Println(diagnostic)
	}
	if ctx.Err() != nil && result.Err == nil && result.ExitCode != 0 {
		result.Err = ctx.Err()
	}

	if !result.Succeeded() {
		result.HasErrorMarker = true
		transcript.Printf("Error: InterFuzz.jar exited with code %d", result.ExitCode)
		r.log().Warn("external tool failed", zap.Int("exit_code", result.ExitCode), zap.Error(result.Err))
		return result
	}
	if result.HasErrorMarker {
		transcript.Println("Warning: Output contains 'fail' or 'error' keywords")
	}
	return result
}

func (r *JarRunner) isFailure(output string) bool {
	if r.IsFailure == nil {
		return ContainsFailureMarker(output)
	}
	return r.IsFailure(output)
}

func (r *JarRunner) log() *zap.Logger {
	if r.logger == nil {
		return zap.NewNop()
	}
	return r.logger
}
