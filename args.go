package main

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"offerhouse/adapters/db"
	"offerhouse/api"
)

func ParseArgs() Args {
	// 先載入 .env，檔案不存在時忽略
	_ = godotenv.Load()

	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.String("store-driver", api.StoreDriverPostgres, "postgres or memory")
	pflag.String("log-level", "info", "debug, info, warn or error")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "offerhouse:", "")

	// redis stream keys
	pflag.String("redis-stream-key-for-notification", "offerhouse-offer-notifications", "")

	// auth config
	pflag.String("jwt-secret", "", "")

	// sweeper config
	pflag.Duration("sweeper-interval", time.Minute, "")
	pflag.Int("sweeper-batch-size", 100, "")
	pflag.Bool("sweeper-lock-enabled", true, "use a redis lock per offer when redis is configured")
	pflag.Duration("sweeper-lock-expiry", 8*time.Second, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("OFFERHOUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		LogLevel:  viper.GetString("log-level"),
		ServerConfig: api.ServerConfig{
			StoreDriver: viper.GetString("store-driver"),
			DB: db.Config{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:      viper.GetString("redis-addr"),
				Password:  viper.GetString("redis-password"),
				DB:        viper.GetInt("redis-db"),
				KeyPrefix: viper.GetString("redis-key-prefix"),
				StreamKeys: api.RedisStreamKeys{
					Notification: viper.GetString("redis-stream-key-for-notification"),
				},
			},
			Auth: api.AuthConfig{
				JWTSecret: viper.GetString("jwt-secret"),
			},
			Sweeper: api.SweeperConfig{
				Interval:    viper.GetDuration("sweeper-interval"),
				BatchSize:   viper.GetInt("sweeper-batch-size"),
				LockEnabled: viper.GetBool("sweeper-lock-enabled"),
				LockExpiry:  viper.GetDuration("sweeper-lock-expiry"),
			},
		},
	}
}

type Args struct {
	ServerURL    string
	LogLevel     string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	if args.ServerURL == "" || args.ServerConfig.Auth.JWTSecret == "" {
		return false
	}
	switch args.ServerConfig.StoreDriver {
	case api.StoreDriverMemory:
		return true
	case api.StoreDriverPostgres:
		return args.ServerConfig.DB.Host != "" && args.ServerConfig.DB.Database != ""
	}
	return false
}
