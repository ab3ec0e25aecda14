package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	OCR    OCRConfig    `mapstructure:"ocr"`
	Mail   MailConfig   `mapstructure:"mail"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type OCRConfig struct {
	AWSRegion     string        `mapstructure:"aws_region"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type MailConfig struct {
	SendGridAPIKey string        `mapstructure:"sendgrid_api_key"`
	FromAddress    string        `mapstructure:"from_address"`
	FromName       string        `mapstructure:"from_name"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from config.yaml (optional) and PLATES_*
// environment variables, env winning over file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "admin")
	v.SetDefault("db.password", "admin123")
	v.SetDefault("db.name", "placas_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("ocr.aws_region", "us-east-1")
	v.SetDefault("ocr.min_confidence", 0.5)
	v.SetDefault("ocr.timeout", 15*time.Second)
	v.SetDefault("mail.timeout", 10*time.Second)
	v.SetDefault("mail.from_name", "Plate Registry")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PLATES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
