package config

import (
	"log"
	"sync"

	"github.com/joho/godotenv"
)

var envOnce sync.Once

// loadEnv 加载项目根目录的 .env，缺失时回退到环境变量
func loadEnv() {
	envOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, falling back to environment variables")
		}
	})
}
