package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

type Config struct {
	MessagesTable    string `mapstructure:"messages_table"`
	PermissionsTable string `mapstructure:"permissions_table"`
	ParamPrefix      string `mapstructure:"param_prefix"`
	MaxMessageLength int    `mapstructure:"max_message_length"`
	DefaultLanguage  string `mapstructure:"default_language"`
	DynamoDBEndpoint string `mapstructure:"dynamodb_endpoint"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	// Local development server only.
	Store       string   `mapstructure:"store"`
	LocalAddr   string   `mapstructure:"local_addr"`
	LocalGrants []string `mapstructure:"local_grants"`
}

// Load reads configuration from environment variables, e.g. MESSAGES_TABLE.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("messages_table", "chat_conversations")
	v.SetDefault("permissions_table", "chat_permissions")
	v.SetDefault("param_prefix", "")
	v.SetDefault("max_message_length", 4000)
	v.SetDefault("default_language", "pt-BR")
	v.SetDefault("dynamodb_endpoint", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("store", StoreDynamoDB)
	v.SetDefault("local_addr", ":8080")
	v.SetDefault("local_grants", []string{})

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.MessagesTable) == "" {
		return errors.New("config: MESSAGES_TABLE must not be empty")
	}
	if strings.TrimSpace(c.PermissionsTable) == "" {
		return errors.New("config: PERMISSIONS_TABLE must not be empty")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("config: MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	}
	switch c.Store {
	case StoreDynamoDB, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE %q", c.Store)
	}
	return nil
}

// Grants parses LOCAL_GRANTS entries of the form "user:conversation".
func (c Config) Grants() ([][2]string, error) {
	grants := make([][2]string, 0, len(c.LocalGrants))
	for _, g := range c.LocalGrants {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		user, conv, ok := strings.Cut(g, ":")
		if !ok || user == "" || conv == "" {
			return nil, fmt.Errorf("config: invalid LOCAL_GRANTS entry %q", g)
		}
		grants = append(grants, [2]string{user, conv})
	}
	return grants, nil
}
