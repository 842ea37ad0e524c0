package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/transit-ace/internal/config"
	"github.com/tatianab/transit-ace/internal/store/sqlite"
	"github.com/tatianab/transit-ace/internal/store/yamlfile"
	"go.uber.org/zap"
)

func TestOpenStore(t *testing.T) {
	for _, tc := range []struct {
		backend string
		want    any
		path    string
	}{
		{config.StoreSQLite, &sqlite.Store{}, "transit-ace.db"},
		{config.StoreYAML, &yamlfile.Store{}, "saves"},
	} {
		t.Run(tc.backend, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "data")
			cfg := &config.Config{StoreBackend: tc.backend, DataDir: dir}

			st, err := OpenStore(cfg, zap.NewNop())
			require.NoError(t, err)
			defer st.Close()
			assert.IsType(t, tc.want, st)

			_, err = os.Stat(filepath.Join(dir, tc.path))
			assert.NoError(t, err)
		})
	}
}

func TestNewGeneratorWithoutKey(t *testing.T) {
	cfg := &config.Config{LLMProvider: "gemini"}
	gen, closeGen, err := NewGenerator(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, gen)
	closeGen()
}

func TestNewGeneratorOpenAI(t *testing.T) {
	cfg := &config.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini", GenerationRetries: 1}
	gen, closeGen, err := NewGenerator(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, gen)
	closeGen()
}
