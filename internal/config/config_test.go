package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"ADDR", "STORE_BACKEND", "DB_URL", "API_KEYS", "INITIAL_CREDITS", "CREATION_COST"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/creations")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, map[string]string{"user-key-123": "user1"}, cfg.APIKeys)
	assert.Equal(t, int64(5), cfg.InitialCredits)
	assert.Equal(t, int64(1), cfg.CreationCost)
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name          string
		env           map[string]string
		expectedError string
		check         func(t *testing.T, cfg Config)
	}{
		{
			name:          "postgres_requires_db_url",
			env:           map[string]string{},
			expectedError: "DB_URL required",
		},
		{
			name: "memory_backend_without_db_url",
			env:  map[string]string{"STORE_BACKEND": "memory"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, BackendMemory, cfg.StoreBackend)
			},
		},
		{
			name:          "unknown_backend",
			env:           map[string]string{"STORE_BACKEND": "redis"},
			expectedError: "STORE_BACKEND",
		},
		{
			name: "api_keys_parsed",
			env:  map[string]string{"STORE_BACKEND": "memory", "API_KEYS": "alice:k1, bob:k2,"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, map[string]string{"k1": "alice", "k2": "bob"}, cfg.APIKeys)
			},
		},
		{
			name:          "api_keys_malformed",
			env:           map[string]string{"STORE_BACKEND": "memory", "API_KEYS": "alice"},
			expectedError: "API_KEYS",
		},
		{
			name: "credits_overridden",
			env:  map[string]string{"STORE_BACKEND": "memory", "INITIAL_CREDITS": "10", "CREATION_COST": "2"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, int64(10), cfg.InitialCredits)
				assert.Equal(t, int64(2), cfg.CreationCost)
			},
		},
		{
			name:          "credits_not_a_number",
			env:           map[string]string{"STORE_BACKEND": "memory", "CREATION_COST": "two"},
			expectedError: "CREATION_COST must be an integer",
		},
		{
			name:          "negative_cost",
			env:           map[string]string{"STORE_BACKEND": "memory", "CREATION_COST": "-1"},
			expectedError: ">= 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tc.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedError)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
