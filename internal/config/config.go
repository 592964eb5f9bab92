package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env            string
	AppSecret      string
	DatabaseURL    string
	Port           string
	SiteName       string
	TMDBToken      string
	ProviderRegion string        // 播放平台查询的固定地区
	IngestDelay    time.Duration // 条目之间的固定抓取间隔
	IngestInterval time.Duration // 定时采集任务的执行周期
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "moovibe")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", "your-secret-key-change-in-production")
	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	delayMs, _ := strconv.Atoi(getEnv("INGEST_DELAY_MS", "300"))
	intervalMin, _ := strconv.Atoi(getEnv("INGEST_INTERVAL_MINUTES", "360"))

	return &Config{
		Env:            getEnv("APP_ENV", "development"),
		AppSecret:      appSecret,
		DatabaseURL:    dbURL,
		Port:           getEnv("PORT", "5005"),
		SiteName:       getEnv("SITE_NAME", "Moovibe"),
		TMDBToken:      getEnv("TMDB_TOKEN", ""),
		ProviderRegion: getEnv("PROVIDER_REGION", "CN"),
		IngestDelay:    time.Duration(delayMs) * time.Millisecond,
		IngestInterval: time.Duration(intervalMin) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
