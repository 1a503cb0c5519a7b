// Package detector picks the progress output mode from the environment.
package detector

import (
	"os"

	"golang.org/x/term"
)

// CIEnvVar forces plain output when set to "true" or "1".
const CIEnvVar = "CI"

// OutputMode represents the rendering mode for task progress.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeTTY renders progress with the terminal's full color support.
	ModeTTY
	// ModeLinear renders plain progress for CI logs and pipes.
	ModeLinear
	// ModeQuiet renders no progress; only failures are reported.
	ModeQuiet
)

// String returns the flag value selecting the mode.
func (m OutputMode) String() string {
	switch m {
	case ModeTTY:
		return "tty"
	case ModeLinear:
		return "linear"
	case ModeQuiet:
		return "quiet"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended output mode based on the environment.
// It checks if stderr is a terminal and if CI environment variables are set.
func DetectEnvironment() OutputMode {
	return detect(term.IsTerminal(int(os.Stderr.Fd())), os.Getenv(CIEnvVar))
}

func detect(isTTY bool, ci string) OutputMode {
	isCI := ci == "true" || ci == "1"
	if !isTTY || isCI {
		return ModeLinear
	}
	return ModeTTY
}

// ResolveMode applies the user override flag to auto-detection.
// userFlag should be one of: "auto", "tty", "linear", "ci", "quiet", or empty.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "tty":
		return ModeTTY
	case "linear", "ci":
		return ModeLinear
	case "quiet":
		return ModeQuiet
	default:
		return autoDetected
	}
}
