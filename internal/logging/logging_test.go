package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		env   string
		want  zapcore.Level
	}{
		{"debug", "dev", zapcore.DebugLevel},
		{"info", "prod", zapcore.InfoLevel},
		{"warn", "staging", zapcore.WarnLevel},
		{"ERROR", "prod", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.env, func(t *testing.T) {
			logger, err := New(tt.level, tt.env)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", "dev")
	assert.Error(t, err)
}
