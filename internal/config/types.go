package config

import "time"

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`

	TokenSecret string        `env:"TOKEN_SECRET,required,notEmpty"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"336h"`

	// empty selects the in-memory user store
	DatabaseURL string `env:"DATABASE_URL"`
	// empty selects in-memory locks, request-token store and rate limiter
	RedisURL string `env:"REDIS_URL"`

	ProviderTimeout       time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
	ProviderRatePerSecond float64       `env:"PROVIDER_RATE_PER_SECOND" envDefault:"20"`
	LockTimeout           time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`

	RateLimit   string   `env:"RATE_LIMIT" envDefault:"60-M"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// redirect login through goth is enabled when SESSION_SECRET is set; BASE_URL defaults to localhost
	SessionSecret string `env:"SESSION_SECRET"`
	BaseURL       string `env:"BASE_URL"`

	Google     Credentials `envPrefix:"GOOGLE_"`
	GitHub     Credentials `envPrefix:"GITHUB_"`
	LinkedIn   Credentials `envPrefix:"LINKEDIN_"`
	Facebook   Credentials `envPrefix:"FACEBOOK_"`
	Yahoo      Credentials `envPrefix:"YAHOO_"`
	Foursquare Credentials `envPrefix:"FOURSQUARE_"`
	Twitch     Credentials `envPrefix:"TWITCH_"`
	Bitbucket  Credentials `envPrefix:"BITBUCKET_"`
	Spotify    Credentials `envPrefix:"SPOTIFY_"`
	Twitter    TwitterCredentials
}

// client id and secret registered with an OAuth2 provider
type Credentials struct {
	ClientID string `env:"CLIENT_ID"`
	Secret   string `env:"SECRET"`
}

// consumer key pair registered with Twitter
type TwitterCredentials struct {
	Key    string `env:"TWITTER_KEY"`
	Secret string `env:"TWITTER_SECRET"`
}
