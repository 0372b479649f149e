package config

import (
	"fmt"
	"net"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector picks the gorm dialector for the configured driver.
func (c Config) Dialector() (gorm.Dialector, error) {
	switch c.DBDriver {
	case "mysql":
		return mysql.Open(c.mysqlDSN()), nil
	case "postgres", "postgresql":
		return postgres.Open(c.postgresDSN()), nil
	case "sqlite", "":
		dsn := c.DBDSN
		if dsn == "" {
			dsn = c.SQLitePath
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

func (c Config) mysqlDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	port := c.DBPort
	if port == "" {
		port = "3306"
	}
	mc := mysqldriver.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.DBHost, port)
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func (c Config) postgresDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	port := c.DBPort
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, port,
	)
}

// InitDB opens the database connection.
func InitDB(c Config) (*gorm.DB, error) {
	dialector, err := c.Dialector()
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if c.Env == "development" {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", c.DBDriver, err)
	}
	return db, nil
}
