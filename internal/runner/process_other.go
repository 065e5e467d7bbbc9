//go:build !unix

package runner

import "os/exec"

// killGroupOnCancel falls back to killing the direct child; WaitDelay
// releases the output pipes if descendants keep them open.
func killGroupOnCancel(cmd *exec.Cmd) {}
