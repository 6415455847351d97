package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type ServerConfig struct {
	RunAddr         string `env:"SERVER_ADDRESS"`
	BaseURL         string `env:"BASE_URL"`
	BadgerPath      string `env:"BADGER_PATH"`
	DatabaseDSN     string `env:"DATABASE_DSN"`
	Secret          string `env:"SECRET"`
	TrustedSubnet   string `env:"TRUSTED_SUBNET"`
	EnableHTTPS     bool   `env:"ENABLE_HTTPS"`
	ProfileMode     bool   `env:"PROFILE_MODE"`
	StrikeAPIKey    string `env:"STRIKE_API_KEY"`
	StrikeAPIURL    string `env:"STRIKE_API_URL"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	StripeAPIURL    string `env:"STRIPE_API_URL"`
	MembersAPIURL   string `env:"MEMBERS_API_URL"`
	MembersAPIKey   string `env:"MEMBERS_API_KEY"`
	LnurlUpstream   string `env:"LNURL_UPSTREAM"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIAPIURL    string `env:"OPENAI_API_URL"`
	NIP05Domain     string `env:"NIP05_DOMAIN"`
	RootPubkey      string `env:"ROOT_PUBKEY"`
	PaymentsEnabled bool   `env:"PAYMENTS_ENABLED"`
	AIEnabled       bool   `env:"AI_ENABLED"`
}

var config ServerConfig

func ParseFlags() (*ServerConfig, error) {
	// .env is optional, env vars win over file values either way
	_ = godotenv.Load()

	flag.StringVar(&config.RunAddr, "a", ":8080", "address and port to run server")
	flag.StringVar(&config.BaseURL, "b", "https://zap.cooking", "public URI prefix for redirects")
	flag.StringVar(&config.BadgerPath, "k", "", "badger KV storage path (empty = in-memory fallback)")
	flag.StringVar(&config.DatabaseDSN, "d", "", "Data Source Name (DSN)")
	flag.StringVar(&config.Secret, "s", "b4952c3809196592c026529df00774e46bfb5be0", "Secret")
	flag.StringVar(&config.TrustedSubnet, "t", "", "trusted subnet for internal stats (CIDR)")
	flag.BoolVar(&config.EnableHTTPS, "https", false, "enable HTTPS with a self-signed cert")
	flag.BoolVar(&config.ProfileMode, "p", false, "register pprof handlers")
	flag.StringVar(&config.StrikeAPIURL, "strike-url", "https://api.strike.me/v1", "Strike API base URL")
	flag.StringVar(&config.StripeAPIURL, "stripe-url", "https://api.stripe.com/v1", "Stripe API base URL")
	flag.StringVar(&config.MembersAPIURL, "members-url", "https://pantry.zap.cooking", "members API base URL")
	flag.StringVar(&config.LnurlUpstream, "lnurl-upstream", "https://breez.tips", "LNURL upstream base URL")
	flag.StringVar(&config.OpenAIAPIURL, "openai-url", "https://api.openai.com/v1", "OpenAI API base URL")
	flag.StringVar(&config.NIP05Domain, "nip05-domain", "zap.cooking", "domain served in nostr.json")
	flag.BoolVar(&config.PaymentsEnabled, "payments", false, "enable payment endpoints")
	flag.BoolVar(&config.AIEnabled, "ai", false, "enable recipe generation endpoint")
	flag.Parse()

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("error parsing env variables: %w", err)
	}

	return &config, nil
}
