package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Addr     string `mapstructure:"addr"`
	Store    string `mapstructure:"store"`
	LogLevel string `mapstructure:"log_level"`
	Dev      bool   `mapstructure:"dev"`

	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	RedisAddr     string `mapstructure:"redis_addr"`
	BadgerPath    string `mapstructure:"badger_path"`

	FirebaseCredentials string `mapstructure:"firebase_credentials"`

	KeyVaultName      string `mapstructure:"key_vault_name"`
	AzureTenantID     string `mapstructure:"azure_tenant_id"`
	AzureClientID     string `mapstructure:"azure_client_id"`
	AzureClientSecret string `mapstructure:"azure_client_secret"`
	SecretsFallback   bool   `mapstructure:"secrets_fallback"`
	FallbackSecret    string `mapstructure:"fallback_secret"`

	UpvoteMode string `mapstructure:"upvote_mode"`
}

const (
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
	StoreBadger = "badger"
)

var defaults = map[string]any{
	"addr":                 ":8000",
	"store":                StoreMongo,
	"log_level":            "info",
	"dev":                  false,
	"mongo_uri":            "mongodb://127.0.0.1:27017/",
	"mongo_database":       "react-blog-db",
	"redis_addr":           "localhost:6379",
	"badger_path":          "./badger-data",
	"firebase_credentials": "credentials.json",
	"key_vault_name":       "",
	"azure_tenant_id":      "",
	"azure_client_id":      "",
	"azure_client_secret":  "",
	"secrets_fallback":     false,
	"fallback_secret":      "",
	"upvote_mode":          "conditional",
}

// Load merges, lowest precedence first: defaults, the optional YAML file at
// path, environment variables (upper-cased keys) and any flags in fs that were
// set on the command line.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return Config{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs != nil {
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := defaults[key]; ok {
				_ = v.BindPFlag(key, f)
			}
		})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMongo, StoreRedis, StoreBadger:
	default:
		return fmt.Errorf("unknown store %q (want mongo, redis or badger)", c.Store)
	}
	switch c.UpvoteMode {
	case "conditional", "legacy":
	default:
		return fmt.Errorf("unknown upvote mode %q (want conditional or legacy)", c.UpvoteMode)
	}
	return nil
}
