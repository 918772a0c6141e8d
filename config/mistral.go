package config

import (
	"os"
	"sync"
)

var (
	mistralOnce   sync.Once
	mistralConfig *MistralConfig
)

type MistralConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	EnableValidation bool
}

func GetMistralConfig() *MistralConfig {
	mistralOnce.Do(func() {
		loadEnv()

		baseURL := os.Getenv("MISTRAL_BASE_URL")
		if baseURL == "" {
			baseURL = "https://api.mistral.ai/v1"
		}
		model := os.Getenv("MISTRAL_MODEL")
		if model == "" {
			model = "mistral-large-latest"
		}

		mistralConfig = &MistralConfig{
			APIKey:           os.Getenv("MISTRAL_API_KEY"),
			BaseURL:          baseURL,
			Model:            model,
			EnableValidation: os.Getenv("ENABLE_FIELD_VALIDATION") == "true",
		}
	})
	return mistralConfig
}
