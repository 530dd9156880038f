package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBDriver  string `json:"dbdriver"`
	DBHost    string `json:"dbhost"`
	DBPort    uint16 `json:"dbport"`
	DBName    string `json:"dbname"`
	DBUSER    string `json:"dbuser"`
	DBPass    string `json:"dbpass"`
	DBSSLMode string `json:"dbsslmode"`

	JWTSecret  string        `json:"-"`
	SessionTTL time.Duration `json:"session_ttl"`

	CORSOrigins        []string `json:"cors_origins"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute"`
	LoginRateLimit     int      `json:"login_rate_limit"`

	UploadDir   string `json:"upload_dir"`
	MaxUploadMB int64  `json:"max_upload_mb"`

	GeoIPDBPath string `json:"geoip_db_path"`
	GeoIPDBURL  string `json:"geoip_db_url"`

	RedisEnabled  bool   `json:"redis_enabled"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redis_db"`

	OpenAIAPIKey      string `json:"-"`
	OpenAIModel       string `json:"openai_model"`
	GoogleAPIKey      string `json:"-"`
	GoogleModel       string `json:"google_model"`
	HuggingFaceAPIKey string `json:"-"`
	HuggingFaceModel  string `json:"huggingface_model"`

	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"-"`
}

// IsTest reports whether the app runs against the in-memory test database.
func (c *Config) IsTest() bool {
	return strings.EqualFold(c.AppEnv, "test")
}

var config *Config
var once sync.Once

func setDefaults(v *viper.Viper) {
	v.SetDefault("APPNAME", "mindcare")
	v.SetDefault("APPENV", "development")
	v.SetDefault("APPPORT", 8080)
	v.SetDefault("GINMODE", "debug")
	v.SetDefault("DBDRIVER", "mysql")
	v.SetDefault("DBHOST", "localhost")
	v.SetDefault("DBPORT", 3306)
	v.SetDefault("DBSSLMODE", "disable")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("LOGIN_RATE_LIMIT", 5)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_MB", 5)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("GOOGLE_MODEL", "gemini-1.5-flash")
	v.SetDefault("HUGGINGFACE_MODEL", "mistralai/Mistral-7B-Instruct-v0.2")
}

// LoadConfig loads the environment variables from an optional .env file and
// returns a singleton Config instance. Process environment wins over .env.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded, using process environment: %v", err)
		}

		v := viper.New()
		v.AutomaticEnv()
		setDefaults(v)

		ttl := v.GetDuration("SESSION_TTL")
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}

		config = &Config{
			AppName:            v.GetString("APPNAME"),
			AppEnv:             v.GetString("APPENV"),
			AppPort:            uint16(v.GetUint("APPPORT")),
			GinMode:            v.GetString("GINMODE"),
			DBDriver:           strings.ToLower(v.GetString("DBDRIVER")),
			DBHost:             v.GetString("DBHOST"),
			DBPort:             uint16(v.GetUint("DBPORT")),
			DBName:             v.GetString("DBNAME"),
			DBUSER:             v.GetString("DBUSER"),
			DBPass:             v.GetString("DBPASS"),
			DBSSLMode:          v.GetString("DBSSLMODE"),
			JWTSecret:          v.GetString("JWTSECRET"),
			SessionTTL:         ttl,
			CORSOrigins:        splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
			LoginRateLimit:     v.GetInt("LOGIN_RATE_LIMIT"),
			UploadDir:          v.GetString("UPLOAD_DIR"),
			MaxUploadMB:        v.GetInt64("MAX_UPLOAD_MB"),
			GeoIPDBPath:        v.GetString("GEOIP_DB_PATH"),
			GeoIPDBURL:         v.GetString("GEOIP_DB_URL"),
			RedisEnabled:       v.GetBool("REDIS_ENABLED"),
			RedisAddr:          v.GetString("REDIS_ADDR"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
			OpenAIModel:        v.GetString("OPENAI_MODEL"),
			GoogleAPIKey:       v.GetString("GOOGLE_API_KEY"),
			GoogleModel:        v.GetString("GOOGLE_MODEL"),
			HuggingFaceAPIKey:  v.GetString("HUGGINGFACE_API_KEY"),
			HuggingFaceModel:   v.GetString("HUGGINGFACE_MODEL"),
			AdminEmail:         v.GetString("ADMIN_EMAIL"),
			AdminPassword:      v.GetString("ADMIN_PASSWORD"),
		}
	})
	return config
}

// ResetConfigForTest drops the cached Config so the next LoadConfig re-reads
// the environment. Only meant for tests.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DSN builds the driver specific data source name.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.DBHost, c.DBPort, c.DBUSER, c.DBPass, c.DBName, c.DBSSLMode)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&charset=utf8mb4", c.DBUSER, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// ConnectDatabase opens the configured database. MySQL is the default,
// DBDRIVER=postgres selects PostgreSQL and APPENV=test an in-memory SQLite.
func ConnectDatabase() (*gorm.DB, error) {
	cfg := LoadConfig()

	var dialector gorm.Dialector
	switch {
	case cfg.IsTest():
		dialector = sqlite.Open("file:mindcare_test?mode=memory&cache=shared")
	case cfg.DBDriver == "postgres":
		dialector = postgres.Open(cfg.DSN())
	case cfg.DBDriver == "mysql" || cfg.DBDriver == "":
		dialector = mysql.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported DBDRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
