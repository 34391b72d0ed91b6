package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv" // 引入這個庫來讀取 .env 檔案
)

// Config 結構體用於儲存應用程式的配置
type Config struct {
	Port          string
	MongoDBURI    string
	DBName        string
	JWTSecret     string
	AllowedOrigin string

	// MessageTTL 是非私訊消息的存活時間，到期後由排程器靜默移除
	MessageTTL time.Duration

	UploadDir   string
	MaxUploadMB int64

	// RedisAddr 為空時停用速率限制
	RedisAddr     string
	RedisPassword string

	AIAPIURL string
	AIAPIKey string
	AIModel  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// LoadConfig 載入配置，優先從環境變數讀取，其次從 .env 檔案讀取
func LoadConfig() *Config {
	// 嘗試載入 .env 檔案，如果不存在也不會報錯
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MongoDBURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("DB_NAME", "chat_app_db"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),

		// 預設 30 分鐘，對齊舊版資料庫 TTL 索引的清理週期
		MessageTTL: time.Duration(getEnvInt("MESSAGE_TTL_MINUTES", 30)) * time.Minute,

		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadMB: int64(getEnvInt("MAX_UPLOAD_MB", 10)),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AIAPIURL: getEnv("AI_API_URL", "https://api.openai.com/v1"),
		AIAPIKey: getEnv("AI_API_KEY", ""),
		AIModel:  getEnv("AI_MODEL", "gpt-4o-mini"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
	}
	return cfg
}

// getEnv 輔助函數，用於從環境變數獲取值，如果不存在則使用預設值
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt 輔助函數，解析整數環境變數，解析失敗時使用預設值
func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
