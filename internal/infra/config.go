package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xela07ax/fractal-gallery/internal/token"
)

// Config — корневая структура конфигурации сервиса галереи.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logger   LoggerConfig   `mapstructure:"logger"`

	// DevMode открывает отладочные ручки (/user/all, DELETE /user/{id}).
	DevMode bool `mapstructure:"dev_mode"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// LoginRPS ограничивает частоту попыток входа (защита от перебора).
	LoginRPS   float64 `mapstructure:"login_rps"`
	LoginBurst int     `mapstructure:"login_burst"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (кэш страниц галереи).
// Пустой Addr полностью отключает кэш.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит секреты HMAC и TTL токенов. Секреты обязательны,
// процесс без них не стартует.
type AuthConfig struct {
	TokenKey   string `mapstructure:"token_key"`
	RefreshKey string `mapstructure:"refresh_key"`
	TokenTTL   string `mapstructure:"token_ttl"`
	RefreshTTL string `mapstructure:"refresh_ttl"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV,
// и валидирует критичные поля. Ошибка здесь фатальна для процесса:
// полусконфигурированный сервис с одним секретом из двух хуже,
// чем не стартовавший.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Исторические имена переменных, под которыми сервис деплоится
	v.BindEnv("auth.token_key", "JWT_TOKEN_KEY")
	v.BindEnv("auth.refresh_key", "JWT_REFRESH_KEY")
	v.BindEnv("auth.token_ttl", "TOKEN_EXPIRE_TIME")
	v.BindEnv("auth.refresh_ttl", "REFRESH_EXPIRE_TIME")
	v.BindEnv("dev_mode", "DEV_MODE")
	v.BindEnv("database.url", "DB_URL")

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла; его отсутствие не ошибка — работаем на ENV и дефолтах
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.login_rps", 5)
	v.SetDefault("server.login_burst", 10)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.refresh_ttl", "7d")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

func (c *Config) validate() error {
	if c.Auth.TokenKey == "" {
		return errors.New("JWT_TOKEN_KEY environment variable is required")
	}
	if c.Auth.RefreshKey == "" {
		return errors.New("JWT_REFRESH_KEY environment variable is required")
	}
	// одинаковые секреты разрушили бы изоляцию access/refresh
	if c.Auth.TokenKey == c.Auth.RefreshKey {
		return errors.New("JWT_TOKEN_KEY and JWT_REFRESH_KEY must differ")
	}

	if _, err := token.ParseTTL(c.Auth.TokenTTL); err != nil {
		return fmt.Errorf("invalid TOKEN_EXPIRE_TIME: %w", err)
	}
	if _, err := token.ParseTTL(c.Auth.RefreshTTL); err != nil {
		return fmt.Errorf("invalid REFRESH_EXPIRE_TIME: %w", err)
	}

	return nil
}
