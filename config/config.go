package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	DB      DBConfig      `toml:"db"`
	JWT     JWTConfig     `toml:"jwt"`
	Redis   RedisConfig   `toml:"redis"`
	Storage StorageConfig `toml:"storage"`
	Policy  PolicyConfig  `toml:"policy"`
	Log     LogConfig     `toml:"log"`
	Admin   AdminConfig   `toml:"admin"`
}

type ServerConfig struct {
	Env            string   `toml:"env"`
	Port           string   `toml:"port"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
	RequestTimeout int      `toml:"request_timeout_sec"`
	AllowedOrigins []string `toml:"allowed_origins"`
	TrustedProxies []string `toml:"trusted_proxies"`
}

type DBConfig struct {
	Driver          string `toml:"driver"` // mysql or sqlite
	DSN             string `toml:"dsn"`
	Host            string `toml:"host"`
	Port            string `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	Name            string `toml:"name"`
	Params          string `toml:"params"`
	SQLitePath      string `toml:"sqlite_path"`
	TLS             string `toml:"tls"`
	TLSVerify       bool   `toml:"tls_verify"`
	TLSCAPath       string `toml:"tls_ca_path"`
	TLSClientCert   string `toml:"tls_client_cert"`
	TLSClientKey    string `toml:"tls_client_key"`
	ConnectRetries  int    `toml:"connect_retries"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime_sec"`
	PingOnConnect   bool   `toml:"ping_on_connect"`
}

type JWTConfig struct {
	Secret        string `toml:"secret"`
	Audience      string `toml:"audience"`
	Issuer        string `toml:"issuer"`
	UserTTLHours  int    `toml:"user_ttl_hours"`
	AdminTTLHours int    `toml:"admin_ttl_hours"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type StorageConfig struct {
	Driver        string `toml:"driver"` // local or r2
	Dir           string `toml:"dir"`
	R2AccountID   string `toml:"r2_account_id"`
	R2AccessKey   string `toml:"r2_access_key_id"`
	R2SecretKey   string `toml:"r2_secret_access_key"`
	R2Bucket      string `toml:"r2_bucket"`
	MaxImageBytes int64  `toml:"max_image_bytes"`
}

type PolicyConfig struct {
	MinWithdrawal   float64 `toml:"min_withdrawal"`
	MaxProofImages  int     `toml:"max_proof_images"`
	ClaimRateLimit  int     `toml:"claim_rate_limit"`
	ClaimRateWindow int     `toml:"claim_rate_window_sec"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	ErrorFile string `toml:"error_file"`
	Console   bool   `toml:"console"`
}

type AdminConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Env:            "development",
			Port:           "8080",
			MaxBodyBytes:   32 << 20,
			RequestTimeout: 15,
		},
		DB: DBConfig{
			Driver:          "mysql",
			Host:            "127.0.0.1",
			Port:            "3306",
			User:            "root",
			Name:            "yanfarm",
			Params:          "charset=utf8mb4&parseTime=True&loc=UTC",
			SQLitePath:      "database.db",
			TLS:             "false",
			ConnectRetries:  5,
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 3600,
			PingOnConnect:   true,
		},
		JWT: JWTConfig{
			UserTTLHours:  24,
			AdminTTLHours: 6,
		},
		Storage: StorageConfig{
			Driver:        "local",
			Dir:           "uploads",
			MaxImageBytes: 10 << 20,
		},
		Policy: PolicyConfig{
			MinWithdrawal:   50,
			MaxProofImages:  5,
			ClaimRateLimit:  30,
			ClaimRateWindow: 60,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Admin: AdminConfig{
			Name: "Administrator",
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file named by
// CONFIG_FILE and finally the process environment. A .env file is read first
// but never overrides variables that are already set.
func Load() (Config, error) {
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Env, "ENV")
	setString(&cfg.Server.Port, "PORT")
	setInt64(&cfg.Server.MaxBodyBytes, "MAX_BODY_BYTES")
	setInt(&cfg.Server.RequestTimeout, "REQ_TIMEOUT_SEC")
	setList(&cfg.Server.AllowedOrigins, "CORS_ALLOWED_ORIGINS")
	setList(&cfg.Server.TrustedProxies, "TRUSTED_PROXIES")

	setString(&cfg.DB.Driver, "DB_DRIVER")
	setString(&cfg.DB.DSN, "DB_DSN")
	setString(&cfg.DB.Host, "DB_HOST")
	setString(&cfg.DB.Port, "DB_PORT")
	setString(&cfg.DB.User, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASS")
	setString(&cfg.DB.Name, "DB_NAME")
	setString(&cfg.DB.Params, "DB_PARAMS")
	setString(&cfg.DB.SQLitePath, "DB_SQLITE_PATH")
	setString(&cfg.DB.TLS, "DB_TLS")
	setBool(&cfg.DB.TLSVerify, "DB_TLS_VERIFY")
	setString(&cfg.DB.TLSCAPath, "DB_TLS_CA_PATH")
	setString(&cfg.DB.TLSClientCert, "DB_TLS_CLIENT_CERT")
	setString(&cfg.DB.TLSClientKey, "DB_TLS_CLIENT_KEY")
	setInt(&cfg.DB.ConnectRetries, "DB_CONNECT_RETRIES")
	setInt(&cfg.DB.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	setInt(&cfg.DB.MaxIdleConns, "DB_MAX_IDLE_CONNS")
	setInt(&cfg.DB.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME")
	setBool(&cfg.DB.PingOnConnect, "DB_PING_ON_CONNECT")

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Audience, "JWT_AUD")
	setString(&cfg.JWT.Issuer, "JWT_ISS")
	setInt(&cfg.JWT.UserTTLHours, "JWT_USER_TTL_HOURS")
	setInt(&cfg.JWT.AdminTTLHours, "JWT_ADMIN_TTL_HOURS")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASS")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	setString(&cfg.Storage.Dir, "UPLOAD_DIR")
	setString(&cfg.Storage.R2AccountID, "R2_ACCOUNT_ID")
	setString(&cfg.Storage.R2AccessKey, "R2_ACCESS_KEY_ID")
	setString(&cfg.Storage.R2SecretKey, "R2_SECRET_ACCESS_KEY")
	setString(&cfg.Storage.R2Bucket, "R2_BUCKET_NAME")
	setInt64(&cfg.Storage.MaxImageBytes, "MAX_IMAGE_BYTES")

	setFloat(&cfg.Policy.MinWithdrawal, "MIN_WITHDRAWAL")
	setInt(&cfg.Policy.MaxProofImages, "MAX_PROOF_IMAGES")
	setInt(&cfg.Policy.ClaimRateLimit, "CLAIM_RATE_LIMIT")
	setInt(&cfg.Policy.ClaimRateWindow, "CLAIM_RATE_WINDOW_SEC")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")
	setString(&cfg.Log.ErrorFile, "LOG_ERROR_FILE")
	setBool(&cfg.Log.Console, "LOG_CONSOLE")

	setString(&cfg.Admin.Email, "ADMIN_EMAIL")
	setString(&cfg.Admin.Password, "ADMIN_PASSWORD")
	setString(&cfg.Admin.Name, "ADMIN_NAME")
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	switch c.DB.Driver {
	case "mysql":
		if c.DB.DSN == "" && (c.DB.Host == "" || c.DB.Name == "") {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the mysql driver")
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("DB_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Storage.Driver {
	case "local", "r2":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Policy.MaxProofImages <= 0 {
		return fmt.Errorf("MAX_PROOF_IMAGES must be positive")
	}
	return nil
}

func (j JWTConfig) UserTTL() time.Duration  { return time.Duration(j.UserTTLHours) * time.Hour }
func (j JWTConfig) AdminTTL() time.Duration { return time.Duration(j.AdminTTLHours) * time.Hour }

func (c Config) IsDevelopment() bool {
	return strings.ToLower(c.Server.Env) == "development"
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		*dst = v
	}
}

func setInt64(dst *int64, key string) {
	if v, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64); err == nil && v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		*dst = v
	}
}
