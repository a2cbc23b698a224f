package api

import (
	"time"

	"offerhouse/adapters/db"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type ServerConfig struct {
	StoreDriver string
	DB          db.Config
	Redis       RedisConfig
	Auth        AuthConfig
	Sweeper     SweeperConfig
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	Notification string
}

type AuthConfig struct {
	JWTSecret string
}

type SweeperConfig struct {
	Interval    time.Duration
	BatchSize   int
	LockEnabled bool
	LockExpiry  time.Duration
}
