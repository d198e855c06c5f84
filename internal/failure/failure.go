// Package failure holds the error taxonomy shared by the synthesis stages.
//
// Recoverable conditions (alignment, reconciliation, scheduling) are handled
// inside their stage. The types here are the ones that cross stage boundaries
// and end up on a job's terminal status.
package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const maxUserMessage = 200

var (
	// ErrAlignmentUnavailable means no aligner produced word timestamps.
	ErrAlignmentUnavailable = errors.New("alignment unavailable")

	// ErrEncoding is returned when audio or subtitle data cannot be encoded.
	ErrEncoding = errors.New("encoding failure")

	// ErrEscapingViolation is returned for text the overlay escaper cannot represent.
	ErrEscapingViolation = errors.New("escaping violation")
)

// ServiceError wraps a failed call to an external collaborator.
type ServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// SynthesisError reports how many chunks were synthesized before a chunk failed.
type SynthesisError struct {
	Succeeded int
	Total     int
	Err       error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize chunks (%d/%d succeeded): %v", e.Succeeded, e.Total, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// StitchError carries the number of synthesized chunks so callers can retry them one by one.
type StitchError struct {
	Chunks int
	Err    error
}

func (e *StitchError) Error() string {
	return fmt.Sprintf("stitch %d chunks: %v", e.Chunks, e.Err)
}

func (e *StitchError) Unwrap() error { return e.Err }

// CompositorError keeps the full compositor diagnostic for logs while exposing
// a short, sanitized message for job status.
type CompositorError struct {
	Diagnostic string
	TimedOut   bool
	Err        error
}

func (e *CompositorError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("compositor timed out: %v", e.Err)
	}
	return fmt.Sprintf("compositor failed: %v", e.Err)
}

func (e *CompositorError) Unwrap() error { return e.Err }

// UserMessage returns the text safe to surface to whoever polls the job.
func (e *CompositorError) UserMessage() string {
	if e.TimedOut {
		return "video compositing timed out"
	}
	last := lastLine(e.Diagnostic)
	if last == "" {
		return "video compositing failed"
	}
	return "video compositing failed: " + Sanitize(last)
}

// UserMessage maps an error to the message shown on a failed job.
func UserMessage(err error) string {
	var compErr *CompositorError
	if errors.As(err, &compErr) {
		return compErr.UserMessage()
	}
	var synthErr *SynthesisError
	if errors.As(err, &synthErr) {
		return fmt.Sprintf("speech synthesis failed after %d of %d chunks", synthErr.Succeeded, synthErr.Total)
	}
	var stitchErr *StitchError
	if errors.As(err, &stitchErr) {
		return fmt.Sprintf("could not join %d audio chunks", stitchErr.Chunks)
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return fmt.Sprintf("%s is unavailable", svcErr.Service)
	}
	switch {
	case errors.Is(err, ErrEscapingViolation):
		return "overlay text contains characters that cannot be rendered safely"
	case errors.Is(err, ErrEncoding):
		return "media encoding failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "job was cancelled or timed out"
	}
	return "video synthesis failed"
}

// Sanitize strips control characters and truncates s for user display.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if len([]rune(s)) > maxUserMessage {
		s = string([]rune(s)[:maxUserMessage]) + "..."
	}
	return s
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
