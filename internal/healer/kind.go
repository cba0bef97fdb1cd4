// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package healer

// State is a step of the healing state machine.
type State string

const (
	StateInit      State = "init"
	StatePreflight State = "preflight"
	StateRun       State = "run"
	StatePatch     State = "patch"
	StateSuccess   State = "success"
	StateHalted    State = "halted"
)

// Terminal reports whether the machine stops in s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateHalted
}

// Kind classifies why a run halted, or an attempt failed.
type Kind string

const (
	KindNone Kind = ""

	// KindMissingFile means the target did not exist when it was about to be run or patched.
	KindMissingFile Kind = "MissingFile"

	// KindExecutionFailure is a failed attempt. It is retryable and never terminal.
	KindExecutionFailure Kind = "ExecutionFailure"

	// KindRepeatedFailure means two consecutive attempts failed the same way.
	KindRepeatedFailure Kind = "RepeatedFailure"

	// KindExhausted means the attempt budget ran out.
	KindExhausted Kind = "Exhausted"

	// KindPatchUnavailable means no usable patch could be obtained.
	KindPatchUnavailable Kind = "PatchUnavailable"

	// KindInstallFailure means the dependency check failed before the first attempt.
	KindInstallFailure Kind = "InstallFailure"

	// KindTimeout means the completion service did not answer in time.
	KindTimeout Kind = "Timeout"

	// KindWriteFailure means the patched source could not be written back.
	KindWriteFailure Kind = "WriteFailure"

	// KindCancelled means the caller's context ended the run.
	KindCancelled Kind = "Cancelled"
)
