package config

import (
	"os"
	"sync"
)

var (
	textractOnce   sync.Once
	textractConfig *TextractConfig
)

type TextractConfig struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	MinConfidence float32
}

func GetTextractConfig() *TextractConfig {
	textractOnce.Do(func() {
		loadEnv()

		textractConfig = &TextractConfig{
			Region:        os.Getenv("AWS_REGION"),
			Endpoint:      os.Getenv("AWS_ENDPOINT"),
			AccessKey:     os.Getenv("AWS_ACCESS_KEY"),
			SecretKey:     os.Getenv("AWS_SECRET_KEY"),
			MinConfidence: 80.0,
		}
	})
	return textractConfig
}
