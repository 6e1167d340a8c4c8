package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/flagx"
)

// flagNames are the flags owned by the config layer; anything else in args
// (sub-commands, -c) is left alone.
var flagNames = []string{"-a", "-o", "-d", "-s", "-S", "-t", "-r", "-b", "-l", "-e"}

// OwnedFlags lists every flag read by LoadConfig, the config file flags
// included.
func OwnedFlags() []string {
	return append([]string{"-c", "-config"}, flagNames...)
}

// parseFlags overlays values given on the command line.
//
//	-a string   gRPC bind address
//	-o string   ops (metrics/health) HTTP bind address
//	-d string   PostgreSQL DSN
//	-s string   access token HMAC secret
//	-S string   refresh token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-b int      bcrypt cost
//	-l string   log level
//	-e string   environment (development, production)
func parseFlags(config *Config, argv []string) {
	args := flagx.FilterArgs(argv, flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.OpsAddr, "o", config.OpsAddr, "address and port for metrics and health")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "S", config.RefreshTokenSecret, "refresh token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.IntVar(&config.HashCost, "b", config.HashCost, "bcrypt cost")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
}
