package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level config.yaml configuration.
type Config struct {
	ESI    ESIConfig    `yaml:"esi"`
	Corp   CorpConfig   `yaml:"corp"`
	DB     DBConfig     `yaml:"db"`
	Janice JaniceConfig `yaml:"janice"`
	Custom CustomConfig `yaml:"custom"`
}

// ESIConfig holds the ESI application credentials and endpoints.
type ESIConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
}

// CorpConfig identifies the corporation being tracked.
type CorpConfig struct {
	CorporationID  int64 `yaml:"corporation_id"`
	WalletDivision int   `yaml:"wallet_division"`
}

// DBConfig locates the ledger database.
type DBConfig struct {
	Path string `yaml:"path"`
}

// JaniceConfig holds the optional Janice appraisal credentials.
type JaniceConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
	URL    string `yaml:"url"`
}

// CustomConfig tunes flow derivation and reporting.
type CustomConfig struct {
	DiscordWebhook    string   `yaml:"discord_webhook,omitempty"`
	ShareUnitISK      float64  `yaml:"share_unit_isk"`
	AlertThreshold    float64  `yaml:"alert_threshold"`
	DonationRefTypes  []string `yaml:"donation_ref_types"`
	SubsidyCreditRate float64  `yaml:"subsidy_credit_rate"`
	MarketCreditRate  float64  `yaml:"market_credit_rate"`
}

// Load reads a config.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default() *Config {
	cfg := &Config{
		Corp: CorpConfig{
			WalletDivision: 1,
		},
		DB: DBConfig{
			Path: "./ledger.db",
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Validate checks that the fields every command needs are present. ESI
// credentials are checked by the sync commands, not here, so read-only
// commands work on a credential-less copy of the database.
func (c *Config) Validate() error {
	if c.Corp.CorporationID == 0 {
		return fmt.Errorf("corp.corporation_id is required")
	}
	if c.Corp.WalletDivision < 1 || c.Corp.WalletDivision > 7 {
		return fmt.Errorf("corp.wallet_division must be 1-7, got %d", c.Corp.WalletDivision)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	return nil
}

// ValidateESI checks the credentials needed to talk to ESI.
func (c *Config) ValidateESI() error {
	if c.ESI.ClientID == "" {
		return fmt.Errorf("esi.client_id is required")
	}
	if c.ESI.ClientSecret == "" {
		return fmt.Errorf("esi.client_secret is required")
	}
	if c.ESI.RefreshToken == "" {
		return fmt.Errorf("esi.refresh_token is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ESI.BaseURL == "" {
		c.ESI.BaseURL = "https://esi.evetech.net/latest"
	}
	if c.ESI.TokenURL == "" {
		c.ESI.TokenURL = "https://login.eveonline.com/v2/oauth/token"
	}
	if c.Corp.WalletDivision == 0 {
		c.Corp.WalletDivision = 1
	}
	if c.DB.Path == "" {
		c.DB.Path = "./ledger.db"
	}
	if c.Janice.URL == "" {
		c.Janice.URL = "https://janice.e-351.com/api/rest/v1/pricer"
	}
	if c.Custom.ShareUnitISK == 0 {
		c.Custom.ShareUnitISK = 1_000_000_000
	}
	if c.Custom.AlertThreshold == 0 {
		c.Custom.AlertThreshold = 50_000_000
	}
	if len(c.Custom.DonationRefTypes) == 0 {
		c.Custom.DonationRefTypes = []string{"player_donation"}
	}
	if c.Custom.SubsidyCreditRate == 0 {
		c.Custom.SubsidyCreditRate = 0.10
	}
	if c.Custom.MarketCreditRate == 0 {
		c.Custom.MarketCreditRate = 0.01
	}
}
