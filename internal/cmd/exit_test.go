package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		message string
		err     error
		want    string
	}{
		{"with cause", foundry.ExitInvalidArgument, "Invalid configuration", assert.AnError, "Invalid configuration: " + assert.AnError.Error()},
		{"without cause", foundry.ExitFileWriteError, "Failed to write output", nil, "Failed to write output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exitError(tt.code, tt.message, tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, tt.code, ExitCode(err))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", exitError(foundry.ExitSignalInt, "Scan cancelled", assert.AnError))
	assert.Equal(t, foundry.ExitSignalInt, ExitCode(wrapped))
}
