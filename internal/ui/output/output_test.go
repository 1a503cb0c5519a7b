package output_test

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/trowel/internal/ui/output"
)

func TestColorProfile(t *testing.T) {
	t.Setenv(output.NoColorEnvVar, "1")
	assert.Equal(t, termenv.Ascii, output.ColorProfile(), "NO_COLOR should force Ascii profile")

	// The detected profile depends on the environment; it only has to be valid.
	t.Setenv(output.NoColorEnvVar, "")
	p := output.ColorProfile()
	assert.True(t, p >= termenv.TrueColor && p <= termenv.Ascii, "should return a valid profile")
}

func TestColorProfileANSI(t *testing.T) {
	t.Setenv(output.NoColorEnvVar, "")
	assert.Equal(t, termenv.ANSI, output.ColorProfileANSI())

	t.Setenv(output.NoColorEnvVar, "1")
	assert.Equal(t, termenv.Ascii, output.ColorProfileANSI())
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	out := output.New(&buf)
	assert.NotNil(t, out)

	_, _ = out.WriteString("test")
	assert.Equal(t, "test", buf.String())
}

func TestNewWithProfile(t *testing.T) {
	t.Setenv(output.NoColorEnvVar, "1")

	var buf bytes.Buffer
	out := output.NewWithProfile(&buf, output.ColorProfileANSI)
	_, _ = out.WriteString(out.String("plain").Foreground(termenv.ANSIRed).String())
	assert.Equal(t, "plain", buf.String())
}

func TestNew_Nil(t *testing.T) {
	assert.NotNil(t, output.New(nil))
	assert.NotNil(t, output.NewWithProfile(nil, output.ColorProfile))
}
