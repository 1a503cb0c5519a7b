package logger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trowel/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestCollectErrorEntries(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantMessages []string
		wantMetadata []map[string]any
	}{
		{
			name:         "standard error",
			err:          errors.New("simple error"),
			wantMessages: []string{"simple error"},
			wantMetadata: []map[string]any{nil},
		},
		{
			name:         "zerr chain",
			err:          zerr.Wrap(zerr.Wrap(errors.New("root"), "middle"), "outer"),
			wantMessages: []string{"outer", "middle", "root"},
			wantMetadata: []map[string]any{{}, {}, nil},
		},
		{
			name:         "merged metadata",
			err:          zerr.With(zerr.With(zerr.New("base"), "k1", "v1"), "k2", 2),
			wantMessages: []string{"base"},
			wantMetadata: []map[string]any{{"k1": "v1", "k2": 2}},
		},
		{
			name:         "metadata on standard error",
			err:          zerr.With(errors.New("exit status 1"), "exit_code", 1),
			wantMessages: []string{"exit status 1"},
			wantMetadata: []map[string]any{{"exit_code": 1}},
		},
		{
			name: "joined errors",
			err: errors.Join(
				zerr.With(zerr.New("css failed"), "file", "a.scss"),
				zerr.With(zerr.New("css failed"), "file", "b.scss"),
			),
			wantMessages: []string{"css failed", "css failed"},
			wantMetadata: []map[string]any{{"file": "a.scss"}, {"file": "b.scss"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := logger.CollectErrorEntries(tt.err)
			require.Len(t, entries, len(tt.wantMessages))

			for i, want := range tt.wantMessages {
				assert.Equal(t, want, entries[i].Message, "message mismatch at index %d", i)
				assert.Equal(t, tt.wantMetadata[i], entries[i].Metadata, "metadata mismatch at index %d", i)
			}
		})
	}

	assert.Empty(t, logger.CollectErrorEntries(nil))
}

func TestFormatErrorEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []logger.ErrorEntry
		want    string
	}{
		{
			name:    "single entry",
			entries: []logger.ErrorEntry{{Message: "single error"}},
			want:    "Error: single error",
		},
		{
			name:    "causes",
			entries: []logger.ErrorEntry{{Message: "first"}, {Message: "second"}, {Message: "third"}},
			want:    "Error: first\n\n  Caused by:\n    → second\n    → third",
		},
		{
			name: "metadata sorted",
			entries: []logger.ErrorEntry{{
				Message:  "error",
				Metadata: map[string]any{"zebra": "z", "alpha": "a"},
			}},
			want: "Error: error\n       alpha: a\n       zebra: z",
		},
		{
			name: "multiline cause with metadata",
			entries: []logger.ErrorEntry{
				{Message: "main"},
				{Message: "line1\nline2", Metadata: map[string]any{"file": "index.pug"}},
			},
			want: "Error: main\n\n  Caused by:\n    → line1\n      line2\n      file: index.pug",
		},
		{
			name:    "empty",
			entries: nil,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.FormatErrorEntries(tt.entries))
		})
	}
}
