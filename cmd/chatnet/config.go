package main

import (
	"chatnet/internal/storage"
	"time"
)

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	StoreDriver          string        `env:"STORE_DRIVER" envDefault:"postgres"`
	BadgerPath           string        `env:"BADGER_PATH" envDefault:"chatnet.badger"`
	NetworkName          string        `env:"NETWORK_NAME" envDefault:"main chat network"`
	EnforceAuthorization bool          `env:"ENFORCE_AUTHORIZATION" envDefault:"true"`
	ConnectionTimeout    time.Duration `env:"PG_CONNECT_TIMEOUT" envDefault:"30s"`
	Postgres             storage.Config
}
