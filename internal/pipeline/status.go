package pipeline

import (
	"fmt"
	"os"
)

// StatusFailure is the legacy integer reported when a pipeline could not be
// run to completion or its last stage did not exit normally.
const StatusFailure = -1

// Exit codes reported for stages whose program could not be executed.
const (
	StatusRedirectFailed = 1
	StatusExecFailed     = 1
	StatusNoPermission   = 126
	StatusNotFound       = 127
)

// ExitStatus describes how a stage finished.
type ExitStatus struct {
	Code   int    // valid when Exited
	Exited bool   // false when killed by a signal
	Signal string // set when killed by a signal
}

// Int returns the numeric status, StatusFailure unless the stage exited.
func (s ExitStatus) Int() int {
	if !s.Exited {
		return StatusFailure
	}
	return s.Code
}

// Success reports a normal exit with code 0.
func (s ExitStatus) Success() bool { return s.Exited && s.Code == 0 }

func (s ExitStatus) String() string {
	if !s.Exited {
		if s.Signal != "" {
			return "signal: " + s.Signal
		}
		return "abnormal exit"
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

func exited(code int) ExitStatus {
	return ExitStatus{Code: code, Exited: true}
}

func statusFromProcessState(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{}
	}
	if ps.Exited() {
		return exited(ps.ExitCode())
	}
	return ExitStatus{Code: ps.ExitCode(), Signal: signalName(ps)}
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Name   string
	Pid    int // 0 when the stage never started
	State  StageState
	Status ExitStatus
	Err    error // redirection or resolution failure
}

// Result is the outcome of a pipeline run.
type Result struct {
	Status ExitStatus // last stage
	Stages []StageResult
	Pipes  int // pipes allocated
}

// Spawned returns how many stages reached a running process.
func (r *Result) Spawned() int {
	n := 0
	for _, s := range r.Stages {
		if s.Pid != 0 {
			n++
		}
	}
	return n
}

// ExitCode folds a result and an orchestration error into a single integer.
func ExitCode(res *Result, err error) int {
	if err != nil || res == nil {
		return StatusFailure
	}
	return res.Status.Int()
}
