package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRoomTTL        = time.Hour
	DefaultBattleDuration = 30 * time.Minute
	DefaultSweepInterval  = time.Minute
	DefaultSandboxURL     = "https://emkc.org/api/v2/piston"
	DefaultSandboxRPS     = 5
)

type SeedAccount struct {
	Id       int    `yaml:"id"`
	Username string `yaml:"username"`
	Rating   int    `yaml:"rating"`
}

type Config struct {
	DatabaseDSN      string
	ServerAddr       string
	SigningKey       []byte
	AllowedOrigins   []string
	QuestionBankPath string
	SandboxURL       string
	SandboxRPS       float64
	RoomTTL          time.Duration
	BattleDuration   time.Duration
	SweepInterval    time.Duration
	SeedAccounts     []SeedAccount
}

type fileConfig struct {
	Battle struct {
		RoomTTL       time.Duration `yaml:"room_ttl"`
		Duration      time.Duration `yaml:"duration"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
		QuestionBank  string        `yaml:"question_bank"`
	} `yaml:"battle"`
	Sandbox struct {
		URL string  `yaml:"url"`
		RPS float64 `yaml:"rps"`
	} `yaml:"sandbox"`
	SeedAccounts []SeedAccount `yaml:"seed_accounts"`
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty key")
	}
	return key, nil
}

// NewConfig validates the required settings. An empty databaseDSN selects the
// in-memory store.
func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		SandboxURL:     DefaultSandboxURL,
		SandboxRPS:     DefaultSandboxRPS,
		RoomTTL:        DefaultRoomTTL,
		BattleDuration: DefaultBattleDuration,
		SweepInterval:  DefaultSweepInterval,
	}, nil
}

// ApplyFile overlays the battle, sandbox and seed settings found in a YAML
// file. Zero values in the file leave the current setting untouched.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if fc.Battle.RoomTTL > 0 {
		c.RoomTTL = fc.Battle.RoomTTL
	}
	if fc.Battle.Duration > 0 {
		c.BattleDuration = fc.Battle.Duration
	}
	if fc.Battle.SweepInterval > 0 {
		c.SweepInterval = fc.Battle.SweepInterval
	}
	if fc.Battle.QuestionBank != "" {
		c.QuestionBankPath = fc.Battle.QuestionBank
	}
	if fc.Sandbox.URL != "" {
		c.SandboxURL = fc.Sandbox.URL
	}
	if fc.Sandbox.RPS > 0 {
		c.SandboxRPS = fc.Sandbox.RPS
	}
	c.SeedAccounts = append(c.SeedAccounts, fc.SeedAccounts...)

	return nil
}
