package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config contains runtime configuration required by the service.
type Config struct {
	Addr           string
	StoreBackend   string
	DBURL          string
	APIKeys        map[string]string // apiKey -> userID
	InitialCredits int64
	CreationCost   int64
}

// Load reads required values from environment variables.
// API_KEYS format: "user1:key1,user2:key2"
func Load() (Config, error) {
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8080"
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	if backend == "" {
		backend = BackendPostgres
	}
	if backend != BackendPostgres && backend != BackendMemory {
		return Config{}, fmt.Errorf("STORE_BACKEND must be %q or %q", BackendPostgres, BackendMemory)
	}

	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if backend == BackendPostgres && dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	apiKeys, err := parseAPIKeys(os.Getenv("API_KEYS"))
	if err != nil {
		return Config{}, err
	}

	// Local dev fallback so the service runs out-of-the-box.
	if len(apiKeys) == 0 {
		apiKeys["user-key-123"] = "user1"
	}

	initialCredits, err := int64Env("INITIAL_CREDITS", 5)
	if err != nil {
		return Config{}, err
	}
	cost, err := int64Env("CREATION_COST", 1)
	if err != nil {
		return Config{}, err
	}
	if initialCredits < 0 || cost < 0 {
		return Config{}, errors.New("INITIAL_CREDITS and CREATION_COST must be >= 0")
	}

	return Config{
		Addr:           addr,
		StoreBackend:   backend,
		DBURL:          dbURL,
		APIKeys:        apiKeys,
		InitialCredits: initialCredits,
		CreationCost:   cost,
	}, nil
}

func parseAPIKeys(raw string) (map[string]string, error) {
	apiKeys := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apiKeys, nil
	}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`API_KEYS must be "user:key,user:key"`)
		}
		user := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if user == "" || key == "" {
			return nil, errors.New(`API_KEYS must be "user:key,user:key"`)
		}
		apiKeys[key] = user
	}
	return apiKeys, nil
}

func int64Env(name string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return v, nil
}
