package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"codeberg.org/boneclub/gammon/pkg/server"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	TCPAddress     string        `yaml:"tcp" env:"BONECLUB_TCP"`
	WebAddress     string        `yaml:"web" env:"BONECLUB_WEB"`
	TZ             string        `yaml:"tz" env:"BONECLUB_TZ"`
	Database       string        `yaml:"database" env:"BONECLUB_DB"`
	Redis          Redis         `yaml:"redis"`
	Mail           Mail          `yaml:"mail"`
	IPAddressSalt  string        `yaml:"ip-salt" env:"BONECLUB_SALT_IP"`
	Link           string        `yaml:"link" env:"BONECLUB_LINK" env-default:"https://boneclub.example"`
	BonesPerPoint  int           `yaml:"bones-per-point" env:"BONECLUB_BONES_PER_POINT" env-default:"10"`
	MOTD           string        `yaml:"motd" env:"BONECLUB_MOTD"`
	SettleInterval time.Duration `yaml:"settle-interval" env:"BONECLUB_SETTLE_INTERVAL" env-default:"1m"`
	Verbose        bool          `yaml:"verbose" env:"BONECLUB_VERBOSE"`
}

// Redis stores sessions in Redis when Host is set.
type Redis struct {
	Host     string `yaml:"host" env:"BONECLUB_REDIS_HOST"`
	Port     string `yaml:"port" env:"BONECLUB_REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"BONECLUB_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"BONECLUB_REDIS_DB"`
}

type Mail struct {
	Server  string `yaml:"server" env:"BONECLUB_SMTP"`
	Enabled bool   `yaml:"enabled" env:"BONECLUB_MAIL"`
}

// Load reads the configuration file at path, when provided, and then environment
// variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(config)
	} else {
		err = cleanenv.ReadConfig(path, config)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	return config, nil
}

// MustLoad - load configuration or panic.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}
	return config
}

// Validate checks that the server has somewhere to listen.
func (c *Config) Validate() error {
	if c.TCPAddress == "" && c.WebAddress == "" {
		return errors.New("a TCP and/or web listen address must be specified")
	}
	return nil
}

func (r *Redis) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// Options returns the server options described by the configuration.
func (c *Config) Options() *server.Options {
	return &server.Options{
		TZ:             c.TZ,
		MailServer:     c.Mail.Server,
		IPAddressSalt:  c.IPAddressSalt,
		Link:           c.Link,
		BonesPerPoint:  c.BonesPerPoint,
		MOTD:           c.MOTD,
		Verbose:        c.Verbose,
		Mail:           c.Mail.Enabled,
		SettleInterval: c.SettleInterval,
	}
}
