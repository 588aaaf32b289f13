package config

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds global application configuration
var AppConfig *Config
var once sync.Once

type Config struct {
	AppName  string
	Port     string
	Env      string
	Debug    bool
	Location *time.Location

	AuthType  string
	APIKey    string
	JWTSecret string
	JWTTTL    time.Duration

	CDNUploadURL    string
	CDNUploadPreset string
	CDNMaxImagePx   int

	OneSignalAppID  string
	OneSignalAPIKey string
	OneSignalURL    string

	ExportDir          string
	ElasticsearchHost  string
	ElasticIndexPrefix string

	CronEnabled       bool
	ExportSchedule    string
	ReconcileSchedule string
	PurgeSchedule     string

	RedisChannel    string
	IDRetryAttempts int
	StockCacheTTL   time.Duration
}

// IsDevelopment reports APP_ENV=development.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

func defaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "warehouse")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_TIMEZONE", "Local")
	v.SetDefault("AUTH_TYPE", "token")
	v.SetDefault("JWT_TTL_HOURS", 24*7)
	v.SetDefault("CDN_MAX_IMAGE_PX", 1600)
	v.SetDefault("ONESIGNAL_URL", "https://onesignal.com/api/v1/notifications")
	v.SetDefault("EXPORT_DIR", "var/export")
	v.SetDefault("ELASTICSEARCH_INDEX_PREFIX", "warehouse")
	v.SetDefault("CRON_ENABLED", true)
	v.SetDefault("EXPORT_SCHEDULE", "0 2 * * *")
	v.SetDefault("RECONCILE_SCHEDULE", "30 2 * * *")
	v.SetDefault("NOTIFICATION_PURGE_SCHEDULE", "0 3 * * *")
	v.SetDefault("REDIS_CHANNEL", "warehouse:events")
	v.SetDefault("ID_RETRY_ATTEMPTS", 5)
	v.SetDefault("STOCK_CACHE_TTL_SECONDS", 60)
}

// FromViper builds a Config from v after applying defaults.
func FromViper(v *viper.Viper) *Config {
	defaults(v)
	loc, err := time.LoadLocation(v.GetString("APP_TIMEZONE"))
	if err != nil {
		log.Printf("invalid APP_TIMEZONE %q, using Local: %v", v.GetString("APP_TIMEZONE"), err)
		loc = time.Local
	}
	return &Config{
		AppName:  v.GetString("APP_NAME"),
		Port:     v.GetString("PORT"),
		Env:      strings.ToLower(v.GetString("APP_ENV")),
		Debug:    v.GetBool("DEBUG"),
		Location: loc,

		AuthType:  v.GetString("AUTH_TYPE"),
		APIKey:    v.GetString("API_KEY"),
		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    time.Duration(v.GetInt("JWT_TTL_HOURS")) * time.Hour,

		CDNUploadURL:    v.GetString("CDN_UPLOAD_URL"),
		CDNUploadPreset: v.GetString("CDN_UPLOAD_PRESET"),
		CDNMaxImagePx:   v.GetInt("CDN_MAX_IMAGE_PX"),

		OneSignalAppID:  v.GetString("ONESIGNAL_APP_ID"),
		OneSignalAPIKey: v.GetString("ONESIGNAL_REST_API_KEY"),
		OneSignalURL:    v.GetString("ONESIGNAL_URL"),

		ExportDir:          v.GetString("EXPORT_DIR"),
		ElasticsearchHost:  v.GetString("ELASTICSEARCH_HOST"),
		ElasticIndexPrefix: v.GetString("ELASTICSEARCH_INDEX_PREFIX"),

		CronEnabled:       v.GetBool("CRON_ENABLED"),
		ExportSchedule:    v.GetString("EXPORT_SCHEDULE"),
		ReconcileSchedule: v.GetString("RECONCILE_SCHEDULE"),
		PurgeSchedule:     v.GetString("NOTIFICATION_PURGE_SCHEDULE"),

		RedisChannel:    v.GetString("REDIS_CHANNEL"),
		IDRetryAttempts: v.GetInt("ID_RETRY_ATTEMPTS"),
		StockCacheTTL:   time.Duration(v.GetInt("STOCK_CACHE_TTL_SECONDS")) * time.Second,
	}
}

// LoadAppConfig initializes the global AppConfig from the environment and,
// when WAREHOUSE_CONFIG names a file, from that file underneath it.
func LoadAppConfig() *Config {
	once.Do(func() {
		v := viper.New()
		v.AutomaticEnv()
		if file := GetEnv("WAREHOUSE_CONFIG", ""); file != "" {
			v.SetConfigFile(file)
			if err := v.ReadInConfig(); err != nil {
				log.Printf("Warning: config file %s not read: %v", file, err)
			}
		}
		AppConfig = FromViper(v)
	})
	return AppConfig
}
