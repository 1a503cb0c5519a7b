// Package output builds termenv outputs that share one color policy across
// the logger, the progress renderer and the dev server banner.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// NoColorEnvVar disables colors when set to any non-empty value.
const NoColorEnvVar = "NO_COLOR"

// ColorProfile returns the profile for interactive terminals.
// NO_COLOR forces Ascii, otherwise the terminal's capabilities are detected.
func ColorProfile() termenv.Profile {
	if os.Getenv(NoColorEnvVar) != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// ColorProfileANSI returns the profile for CI and piped output.
// NO_COLOR forces Ascii, otherwise plain 16-color ANSI is used.
func ColorProfileANSI() termenv.Profile {
	if os.Getenv(NoColorEnvVar) != "" {
		return termenv.Ascii
	}
	return termenv.ANSI
}

// New creates a termenv.Output using ColorProfile.
// A nil writer falls back to os.Stderr.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	return NewWithProfile(w, ColorProfile, opts...)
}

// NewWithProfile creates a termenv.Output with a custom profile selector.
func NewWithProfile(w io.Writer, profileFn func() termenv.Profile, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}

	opts = append(opts,
		termenv.WithProfile(profileFn()),
		termenv.WithTTY(true),
	)

	return termenv.NewOutput(w, opts...)
}
