package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		wantErr     bool
	}{
		{name: "debug production", level: "debug"},
		{name: "info production", level: "info"},
		{name: "warn development", level: "warn", development: true},
		{name: "error development", level: "error", development: true},
		{name: "invalid level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.level, tt.development)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, l)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, l.SugaredLogger)
			require.Equal(t, tt.level, l.GetLevel())
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l, err := NewLogger("info", false)
	require.NoError(t, err)

	require.NoError(t, l.SetLevel("debug"))
	require.Equal(t, "debug", l.GetLevel())
	require.True(t, l.atomicLevel.Enabled(zapcore.DebugLevel))

	require.Error(t, l.SetLevel("verbose"))
	require.Equal(t, "debug", l.GetLevel())

	require.NoError(t, l.SetLevel("error"))
	require.False(t, l.atomicLevel.Enabled(zapcore.WarnLevel))
}

func TestLogger_ComponentsShareLevel(t *testing.T) {
	base, err := NewLogger("info", false)
	require.NoError(t, err)
	require.Empty(t, base.GetComponent())

	orchestrator := base.WithComponent("orchestrator")
	delivery := base.WithComponent("delivery")
	require.Equal(t, "orchestrator", orchestrator.GetComponent())
	require.Equal(t, "delivery", delivery.GetComponent())

	require.NoError(t, base.SetLevel("warn"))
	require.Equal(t, "warn", orchestrator.GetLevel())
	require.Equal(t, "warn", delivery.GetLevel())
}

func TestNewComponentLogger(t *testing.T) {
	l := NewComponentLogger("scanner", "debug", true)
	require.Equal(t, "scanner", l.GetComponent())
	require.Equal(t, "debug", l.GetLevel())

	require.Panics(t, func() {
		_ = NewComponentLogger("scanner", "chatty", false)
	})
}

type fakeLoggingConfig struct {
	defaultLevel string
	development  bool
	levels       map[string]string
}

func (f fakeLoggingConfig) GetComponentLevel(component string) string {
	if level, ok := f.levels[component]; ok {
		return level
	}
	return f.defaultLevel
}

func (f fakeLoggingConfig) GetDefaultLevel() string { return f.defaultLevel }

func (f fakeLoggingConfig) IsDevelopment() bool { return f.development }

func TestNewComponentLoggerFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		component string
		cfg       LoggingConfig
		want      string
	}{
		{
			name:      "component override",
			component: "gateway",
			cfg:       fakeLoggingConfig{defaultLevel: "info", levels: map[string]string{"gateway": "debug"}},
			want:      "debug",
		},
		{
			name:      "falls back to default",
			component: "transfer",
			cfg:       fakeLoggingConfig{defaultLevel: "warn"},
			want:      "warn",
		},
		{
			name:      "empty levels fall back to info",
			component: "store",
			cfg:       fakeLoggingConfig{},
			want:      "info",
		},
		{
			name:      "nil config",
			component: "scheduler",
			cfg:       nil,
			want:      "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewComponentLoggerFromConfig(tt.component, tt.cfg)
			require.Equal(t, tt.component, l.GetComponent())
			require.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger()
	require.NotNil(t, l.SugaredLogger)

	l.Debug("discarded")
	l.Infow("discarded", "k", "v")
	l.Errorf("discarded %d", 1)
	require.Equal(t, "nop", l.WithComponent("nop").GetComponent())
}

func TestGetDefaultLogger(t *testing.T) {
	custom := NewNopLogger()
	SetDefaultLogger(custom)
	require.Same(t, custom, GetDefaultLogger())
}
