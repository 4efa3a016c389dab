// Package config turns command-line flags, environment variables and an
// optional config.toml into one explicit Config value.
//
// Precedence per setting: command-line flag, then environment variable, then
// the TOML key, then the built-in default. Nothing here is a package-level
// global the rest of the program reads; server and cmd receive a *Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/sakif/luno/internal/auth"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	SecureDev bool // relax HTTPS-only security headers for local development
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string // file path for SQLite, postgres:// URL for Postgres
}

type JWTConfig struct {
	Secret        string
	Issuer        string
	Audience      string
	ExpireMinutes int
}

type AuthConfig struct {
	BcryptCost int
}

func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host:      cmd.String("host"),
			Port:      int(cmd.Int("port")),
			SecureDev: cmd.Bool("secure-dev"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		JWT: JWTConfig{
			Secret:        cmd.String("jwt-secret"),
			Issuer:        cmd.String("jwt-issuer"),
			Audience:      cmd.String("jwt-audience"),
			ExpireMinutes: int(cmd.Int("jwt-expire-minutes")),
		},
		Auth: AuthConfig{
			BcryptCost: int(cmd.Int("bcrypt-cost")),
		},
	}
}

// Validate reports every problem at once so an operator can fix the whole
// configuration in one pass.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt secret is required (--jwt-secret or JWT_SECRET)"))
	} else if len(c.JWT.Secret) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("jwt secret must be at least %d bytes", auth.MinSecretLength))
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		errs = append(errs, errors.New("jwt issuer is required (--jwt-issuer or JWT_ISSUER)"))
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		errs = append(errs, errors.New("jwt audience is required (--jwt-audience or JWT_AUDIENCE)"))
	}
	if c.JWT.ExpireMinutes <= 0 {
		errs = append(errs, errors.New("jwt expire minutes must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Server.Port))
	}

	return errors.Join(errs...)
}

// TokenConfig is the immutable token configuration shared by issuer and
// validator.
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:   c.JWT.Secret,
		Issuer:   c.JWT.Issuer,
		Audience: c.JWT.Audience,
		TTL:      time.Duration(c.JWT.ExpireMinutes) * time.Minute,
	}
}

// Addr is the listen address for net/http.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StorageFlags are the settings every subcommand that opens the database
// needs.
func StorageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/luno.db",
			Usage:   "Database DSN (SQLite file path or postgres:// URL)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
	}
}

// Flags is the full flag set of the serve command.
func Flags() []cli.Flag {
	return append(StorageFlags(),
		&cli.StringFlag{
			Name:    "host",
			Usage:   "Host to bind to (empty for all interfaces)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.BoolFlag{
			Name:    "secure-dev",
			Usage:   "Relax HTTPS-only security headers for local development",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SECURE_DEV"), toml.TOML("server.secure_dev", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "HMAC secret for signing tokens (at least 32 bytes)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("jwt.secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-issuer",
			Usage:   "Token issuer (iss claim)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_ISSUER"), toml.TOML("jwt.issuer", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-audience",
			Usage:   "Token audience (aud claim)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_AUDIENCE"), toml.TOML("jwt.audience", configFile)),
		},
		&cli.IntFlag{
			Name:    "jwt-expire-minutes",
			Value:   1440,
			Usage:   "Token lifetime in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_EXPIRE_MINUTES"), toml.TOML("jwt.expire_minutes", configFile)),
		},
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   auth.DefaultCost,
			Usage:   "bcrypt work factor (4-31)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BCRYPT_COST"), toml.TOML("auth.bcrypt_cost", configFile)),
		},
	)
}
