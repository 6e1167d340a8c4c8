package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/humanizone/internal/flagx"
	"github.com/dmitrijs2005/humanizone/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept "15m"
// style strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	OpsAddr                      string         `json:"ops_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	HashCost                     int            `json:"hash_cost"`
	LogLevel                     string         `json:"log_level"`
	Environment                  string         `json:"environment"`
}

// parseJson reads the file named by -c/-config in args, if any, and copies
// every field it sets into config. Unreadable or invalid files panic.
func parseJson(config *Config, args []string) {
	path := flagx.JsonConfigFlagsFrom(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.OpsAddr, c.OpsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.Environment, c.Environment)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.HashCost != 0 {
		config.HashCost = c.HashCost
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
