package myconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultPort         = "3000"
	defaultTemplateLink = "https://docs.google.com/spreadsheets/d/YOUR_SPREADSHEET_ID/copy"
)

var ErrMissingConfig = errors.New("missing required configuration")

type Config struct {
	Port string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProductID     string
	StripePriceID       string

	// PublicBaseURL overrides the scheme and host derived from incoming requests when
	// composing the success and cancel urls handed to the payment provider. The Host header
	// is chosen by the client, so it is required when deployed.
	PublicBaseURL string
	StaticDir     string
	BoltPath      string
	TemplateLink  string

	// InternalToken must be presented by Cloud Tasks triggers and Pub/Sub pushes. Required
	// when deployed; when empty those endpoints refuse every request.
	InternalToken string
	// TrustedProxies is the number of proxies in front of the process that append to
	// X-Forwarded-For. Defaults to 1 (the Google front end) when deployed, 0 otherwise.
	TrustedProxies int

	GoogleCloudProject string
}

// Deployed reports whether the process runs on Google Cloud.
func (c Config) Deployed() bool {
	return c.GoogleCloudProject != ""
}

// Load reads an optional .env file followed by the process environment. Missing secrets
// are reported as an error so the process can refuse to start.
func Load() (Config, error) {
	_ = godotenv.Load()

	return FromLookup(os.Getenv)
}

func FromLookup(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:                withDefault(getenv("PORT"), defaultPort),
		StripeSecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET")),
		StripeProductID:     strings.TrimSpace(getenv("STRIPE_PRODUCT_ID")),
		StripePriceID:       strings.TrimSpace(getenv("STRIPE_PRICE_ID")),
		PublicBaseURL:       strings.TrimSuffix(getenv("PUBLIC_BASE_URL"), "/"),
		StaticDir:           getenv("STATIC_DIR"),
		BoltPath:            getenv("BOLT_PATH"),
		TemplateLink:        withDefault(getenv("TEMPLATE_LINK"), defaultTemplateLink),
		InternalToken:       strings.TrimSpace(getenv("INTERNAL_TOKEN")),
		GoogleCloudProject:  getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if cfg.Deployed() {
		cfg.TrustedProxies = 1
	}
	if value := strings.TrimSpace(getenv("TRUSTED_PROXIES")); value != "" {
		trustedProxies, err := strconv.Atoi(value)
		if err != nil || trustedProxies < 0 {
			return cfg, fmt.Errorf("invalid TRUSTED_PROXIES '%s': expected a non-negative number", value)
		}
		cfg.TrustedProxies = trustedProxies
	}

	missing := []string{}
	if cfg.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if cfg.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if cfg.Deployed() && cfg.PublicBaseURL == "" {
		missing = append(missing, "PUBLIC_BASE_URL")
	}
	if cfg.Deployed() && cfg.InternalToken == "" {
		missing = append(missing, "INTERNAL_TOKEN")
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func withDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
