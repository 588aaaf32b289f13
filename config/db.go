package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens the database selected by DB_DRIVER (mysql, postgres or sqlite).
func NewDB() (*gorm.DB, error) {
	dialector, err := dialectorFromEnv()
	if err != nil {
		return nil, err
	}

	logMode := logger.Warn
	switch os.Getenv("GORM_LOG") {
	case "off":
		logMode = logger.Silent
	case "info":
		logMode = logger.Info
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logMode,
			Colorful:      true,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormLogger,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
}

func dialectorFromEnv() (gorm.Dialector, error) {
	driver := GetEnv("DB_DRIVER", "mysql")
	dsn := os.Getenv("DB_DSN")
	switch driver {
	case "mysql":
		if dsn == "" {
			dsn = os.Getenv("MYSQL_DSN")
		}
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=Local",
				os.Getenv("MYSQL_USER"), os.Getenv("MYSQL_PASS"), GetEnv("MYSQL_HOST", "127.0.0.1"),
				GetEnv("MYSQL_PORT", "3306"), os.Getenv("MYSQL_DB"))
		}
		return mysql.Open(dsn), nil
	case "postgres":
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				GetEnv("POSTGRES_HOST", "127.0.0.1"), GetEnv("POSTGRES_PORT", "5432"), os.Getenv("POSTGRES_USER"),
				os.Getenv("POSTGRES_PASSWORD"), os.Getenv("POSTGRES_DB"), GetEnv("POSTGRES_SSLMODE", "disable"))
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		if dsn == "" {
			dsn = GetEnv("SQLITE_PATH", "warehouse.db")
		}
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
}
