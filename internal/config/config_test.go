package config

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Root:             ".",
		Workers:          10,
		Capacity:         100_000,
		MaxFileSize:      1 << 30,
		ChunkSize:        4096,
		OverlapSize:      32,
		Separators:       "-",
		Patterns:         []string{"ssn-expanded"},
		Output:           "text",
		ProgressInterval: 100,
		LogLevel:         "info",
		OTel:             OTelConfig{SamplingRatio: 1},
	}, cfg)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DRIVESCAN_WORKERS", "3")
	t.Setenv("DRIVESCAN_OTEL_ENDPOINT", "collector:4317")
	t.Setenv("DRIVESCAN_PATTERNS", "ssn-expanded,cc-compact")
	t.Setenv("DRIVESCAN_OUTPUT", "json")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "collector:4317", cfg.OTel.Endpoint)
	assert.Equal(t, []string{"ssn-expanded", "cc-compact"}, cfg.Patterns)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  error
	}{
		{name: "zero workers", key: KeyWorkers, value: 0},
		{name: "zero capacity", key: KeyCapacity, value: 0},
		{name: "tiny overlap", key: KeyOverlapSize, value: 2},
		{name: "unknown output", key: KeyOutput, value: "xml"},
		{name: "unknown log level", key: KeyLogLevel, value: "trace"},
		{name: "negative rate limit", key: KeyReadRateLimit, value: -1.0},
		{name: "sampling above one", key: KeyOTelSampling, value: 1.5},
		{name: "debug address without port", key: KeyDebugAddr, value: "localhost"},
		{name: "no patterns at all", key: KeyPatterns, value: []string{}, want: ErrNoPatterns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestLoad_PatternsFileAlone(t *testing.T) {
	v := newViper()
	v.Set(KeyPatterns, []string{})
	v.Set(KeyPatternsFile, "patterns.yaml")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Empty(t, cfg.Patterns)
	assert.Equal(t, "patterns.yaml", cfg.PatternsFile)
}

type staticLoader struct {
	file *PatternFile
	err  error
}

func (l staticLoader) Load(context.Context) (*PatternFile, error) { return l.file, l.err }

func TestResolvePatterns(t *testing.T) {
	classifier, err := domain.NewClassifier('-', '/')
	require.NoError(t, err)
	errUnreadable := errors.New("unreadable")

	tests := []struct {
		name      string
		builtins  []string
		loader    Loader
		wantNames []string
		wantErr   error
		errSubstr string
	}{
		{
			name:      "builtins only",
			builtins:  []string{domain.PatternSSNExpanded, domain.PatternCCCompact},
			wantNames: []string{domain.PatternSSNExpanded, domain.PatternCCCompact},
		},
		{
			name:     "builtins then file",
			builtins: []string{domain.PatternSSNExpanded},
			loader: staticLoader{file: &PatternFile{Patterns: []PatternSpec{
				{Name: "date", Shape: ".00/00/0000."},
			}}},
			wantNames: []string{domain.PatternSSNExpanded, "date"},
		},
		{
			name:      "unknown builtin",
			builtins:  []string{"passport"},
			errSubstr: "unknown built-in pattern",
		},
		{
			name:     "duplicate name across sources",
			builtins: []string{domain.PatternSSNExpanded},
			loader: staticLoader{file: &PatternFile{Patterns: []PatternSpec{
				{Name: domain.PatternSSNExpanded, Shape: "?000?"},
			}}},
			errSubstr: "duplicate pattern name",
		},
		{
			name: "invalid shape in file",
			loader: staticLoader{file: &PatternFile{Patterns: []PatternSpec{
				{Name: "bad", Shape: ".0?0."},
			}}},
			wantErr: domain.ErrPatternWildInside,
		},
		{
			name: "unnamed definition",
			loader: staticLoader{file: &PatternFile{Patterns: []PatternSpec{
				{Shape: ".000."},
			}}},
			errSubstr: "has no name",
		},
		{
			name:    "loader failure",
			loader:  staticLoader{err: errUnreadable},
			wantErr: errUnreadable,
		},
		{
			name:    "nothing configured",
			loader:  staticLoader{file: &PatternFile{}},
			wantErr: ErrNoPatterns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			templates, err := ResolvePatterns(context.Background(), tt.builtins, tt.loader, classifier)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				return
			case tt.errSubstr != "":
				assert.ErrorContains(t, err, tt.errSubstr)
				return
			}
			require.NoError(t, err)

			var names []string
			for _, tmpl := range templates {
				names = append(names, tmpl.Name())
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}
