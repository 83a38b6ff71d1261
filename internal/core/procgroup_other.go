// ABOUTME: Fallback for platforms without Unix process groups
// ABOUTME: Cancellation kills the shell only; WaitDelay still bounds the wait
//go:build !unix

package core

import "os/exec"

func killProcessGroup(cmd *exec.Cmd) {}
