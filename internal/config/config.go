package config

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"

	"github.com/PratikDhanave/line-webhook-service/internal/tracing"
)

// TextCodeConfigMissing marks a startup failure caused by missing configuration.
const TextCodeConfigMissing = "CONFIG_MISSING"

// Config contains runtime configuration required by the service.
type Config struct {
	ChannelSecret      string `env:"LINE_CHANNEL_SECRET,required,notEmpty"`
	ChannelAccessToken string `env:"LINE_CHANNEL_ACCESS_TOKEN,required,notEmpty"`

	Port     int    `env:"PORT" envDefault:"8000"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StaticDir   string `env:"STATIC_DIR" envDefault:"static"`
	RepliesFile string `env:"REPLIES_FILE" envDefault:"configs/replies.yaml"`

	// DBURL enables the durable delivery journal when set.
	DBURL string `env:"DATABASE_URL"`
	// AdminAPIKey enables GET /deliveries when set.
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	APIEndpoint    string        `env:"LINE_API_ENDPOINT"`
	APITimeout     time.Duration `env:"LINE_API_TIMEOUT" envDefault:"10s"`
	APIConcurrency int           `env:"LINE_API_CONCURRENCY" envDefault:"8"`

	DedupeTTL       time.Duration `env:"DEDUPE_TTL" envDefault:"10m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Tracing tracing.Config
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFromMap reads configuration from vars instead of the process environment.
func LoadFromMap(vars map[string]string) (Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, configError(credentialsHint, err)
	}

	cfg.ChannelSecret = strings.TrimSpace(cfg.ChannelSecret)
	cfg.ChannelAccessToken = strings.TrimSpace(cfg.ChannelAccessToken)

	var missing []string
	if cfg.ChannelSecret == "" {
		missing = append(missing, "LINE_CHANNEL_SECRET")
	}
	if cfg.ChannelAccessToken == "" {
		missing = append(missing, "LINE_CHANNEL_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return Config{}, configError(credentialsHint, errors.New("blank "+strings.Join(missing, ", ")))
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, configError("invalid configuration", errors.New("PORT must be between 1 and 65535"))
	}
	if cfg.APIConcurrency <= 0 {
		return Config{}, configError("invalid configuration", errors.New("LINE_API_CONCURRENCY must be positive"))
	}

	return cfg, nil
}

const credentialsHint = "Specify LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN as environment variables."

func configError(message string, source error) error {
	return goerrors.Wrap(source, goerrors.CategoryValidation, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeConfigMissing)
}

// IsMissing reports whether err is a configuration error from Load.
func IsMissing(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeConfigMissing
}
