package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/leasing-assistant/internal/config"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		DBDriver:            "sqlite",
		DatabaseURL:         ":memory:",
		SeedDemoData:        true,
		LLMProvider:         "openai",
		OpenAIAPIKey:        "sk-test",
		LLMMaxTokens:        150,
		CacheMaxPerIdentity: 100,
	}
}

func TestNewWiresComponents(t *testing.T) {
	a, err := New(context.Background(), testConfig(), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Chat)
	assert.NotNil(t, a.Agent)
	assert.Nil(t, a.Events)
	assert.Len(t, a.Registry.Declarations(), 3)

	communities, err := a.Store.Communities(context.Background())
	require.NoError(t, err)
	assert.Len(t, communities, 2)
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "anthropic"

	_, err := New(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "no API key")
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "mystery"

	_, err := New(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

func TestOpenStoreWithoutSeed(t *testing.T) {
	cfg := testConfig()
	cfg.SeedDemoData = false

	s, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	communities, err := s.Communities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, communities)
}
