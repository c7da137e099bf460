package log_test

import (
	"bytes"
	"testing"

	"github.com/argus-labs/erased/pkg/log"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct{}

func (fakeWorld) RegisteredComponents() []log.ComponentInfo {
	return []log.ComponentInfo{{ID: 0, Name: "Health"}, {ID: 1, Name: "Position"}}
}

func (fakeWorld) RegisteredSystems() []string {
	return []string{"spawn", "regen"}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     log.Config
		wantErr bool
	}{
		{name: "json info", cfg: log.Config{Level: "info", Format: log.FormatJSON}},
		{name: "pretty debug upper case", cfg: log.Config{Level: "DEBUG", Format: log.FormatPretty}},
		{name: "bad level", cfg: log.Config{Level: "loud", Format: log.FormatJSON}, wantErr: true},
		{name: "bad format", cfg: log.Config{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.New(log.Config{Level: "warn", Format: log.FormatJSON, Out: &buf})

	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWorld_LogsComponentsAndSystems(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	log.World(&logger, fakeWorld{}, zerolog.InfoLevel)

	var line struct {
		TotalComponents int `json:"total_components"`
		Components      []struct {
			ID   uint32 `json:"component_id"`
			Name string `json:"component_name"`
		} `json:"components"`
		TotalSystems int      `json:"total_systems"`
		Systems      []string `json:"systems"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, 2, line.TotalComponents)
	assert.Equal(t, "Position", line.Components[1].Name)
	assert.Equal(t, 2, line.TotalSystems)
	assert.Equal(t, []string{"spawn", "regen"}, line.Systems)
}

func TestEntity_LogsEntityID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	log.Entity(&logger, zerolog.DebugLevel, 7, []log.ComponentInfo{{ID: 3, Name: "Health"}}, "inserted")

	assert.Contains(t, buf.String(), `"entity_id":7`)
	assert.Contains(t, buf.String(), `"component_name":"Health"`)
}
