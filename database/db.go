package database

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"yanfarm/config"
	"yanfarm/logger"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the store selected by cfg.DB.Driver and sets DB.
func Open(cfg config.Config) (*gorm.DB, error) {
	if DB != nil {
		return DB, nil
	}
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DB.Driver {
	case "sqlite":
		db, err = OpenSQLite(cfg.DB.SQLitePath, cfg.IsDevelopment())
	default:
		db, err = Connect(cfg.DB, cfg.IsDevelopment())
	}
	if err != nil {
		return nil, err
	}
	DB = db
	return DB, nil
}

// Connect opens MySQL with TLS, timeouts, pooling and retry.
func Connect(c config.DBConfig, verbose bool) (*gorm.DB, error) {
	dsn := c.DSN
	if dsn == "" {
		params := c.Params
		if !strings.Contains(params, "tls=") {
			switch c.TLS {
			case "true", "preferred":
				if c.TLSVerify {
					params += "&tls=custom"
				} else {
					params += "&tls=" + c.TLS
				}
			}
		}
		for _, p := range []string{"timeout", "readTimeout", "writeTimeout"} {
			if !strings.Contains(params, p+"=") {
				params += "&" + p + "=10s"
			}
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", c.User, c.Password, c.Host, c.Port, c.Name, strings.TrimPrefix(params, "&"))
	}

	safeDSN := dsn
	if c.Password != "" {
		safeDSN = strings.Replace(safeDSN, c.Password, "******", 1)
	}
	logger.Info("database: connecting", zap.String("dsn", safeDSN))

	if strings.Contains(dsn, "tls=custom") {
		tlsCfg, err := customTLS(c)
		if err != nil {
			return nil, err
		}
		if err := mysqldriver.RegisterTLSConfig("custom", tlsCfg); err != nil {
			return nil, fmt.Errorf("register tls config: %w", err)
		}
	}

	retries := c.ConnectRetries
	if retries <= 0 {
		retries = 1
	}
	var (
		db  *gorm.DB
		err error
	)
	backoff := time.Second
	for attempt := 0; attempt < retries; attempt++ {
		db, err = gorm.Open(gormmysql.Open(dsn), gormConfig(verbose))
		if err == nil {
			break
		}
		logger.Warn("database: connect failed", zap.Int("attempt", attempt+1), zap.Error(err))
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetime) * time.Second)

	if c.PingOnConnect {
		if err := pingWithTimeout(sqlDB, 5*time.Second); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
	}
	return db, nil
}

// OpenSQLite opens a file-backed SQLite store. Writers are serialised through
// one connection and transactions take the write lock up front, so the
// conditional updates behave the same as on MySQL.
func OpenSQLite(path string, verbose bool) (*gorm.DB, error) {
	dsn := path + "?_busy_timeout=5000&_txlock=immediate&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(verbose))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormConfig(verbose bool) *gorm.Config {
	level := gormlogger.Silent
	if verbose {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func customTLS(c config.DBConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.TLSCAPath != "" {
		caCert, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("failed reading DB TLS CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to append CA certs")
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSClientCert != "" && c.TLSClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.TLSClientCert, c.TLSClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

func pingWithTimeout(db *sql.DB, timeout time.Duration) error {
	ch := make(chan error, 1)
	go func() {
		ch <- db.Ping()
	}()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("ping timeout after %s", timeout)
	}
}

func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	DB = nil
}
