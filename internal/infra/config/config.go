package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App        AppSettings        `mapstructure:"app"`
	Redis      RedisSettings      `mapstructure:"redis"`
	JWT        JWTSettings        `mapstructure:"jwt"`
	Kafka      KafkaSettings      `mapstructure:"kafka"`
	Revocation RevocationSettings `mapstructure:"revocation"`
	Telemetry  TelemetrySettings  `mapstructure:"telemetry"`
	CORS       CORSSettings       `mapstructure:"cors"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RedisSettings configures the revocation store connection. Enabled=false
// drives the degraded fallback path instead of failing startup.
type RedisSettings struct {
	Enabled       bool          `mapstructure:"enabled"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	DB            int           `mapstructure:"db"`
	Password      string        `mapstructure:"password"`
	TLSEnabled    bool          `mapstructure:"tls_enabled"`
	OpTimeout     time.Duration `mapstructure:"op_timeout"`
	TokenPrefix   string        `mapstructure:"token_prefix"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
}

type JWTSettings struct {
	KeyDirectory    string        `mapstructure:"key_directory"`
	ActiveKID       string        `mapstructure:"active_kid"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// KafkaSettings configures the event publisher. Empty brokers select the
// logging stub.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

type RevocationSettings struct {
	DegradationPolicy string `mapstructure:"degradation_policy"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("LUMINA")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.op_timeout",
		"redis.token_prefix",
		"redis.subject_prefix",
		"jwt.key_directory",
		"jwt.active_kid",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"revocation.degradation_policy",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"cors.allowed_origins",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lumina-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.op_timeout", "2s")
	v.SetDefault("redis.token_prefix", "revocation:token")
	v.SetDefault("redis.subject_prefix", "revocation:subject")

	v.SetDefault("jwt.key_directory", "./secrets")
	v.SetDefault("jwt.active_kid", "v1")
	v.SetDefault("jwt.access_token_ttl", "2h")
	v.SetDefault("jwt.refresh_token_ttl", "720h")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "lumina")
	v.SetDefault("kafka.async", true)

	v.SetDefault("revocation.degradation_policy", "lenient")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "lumina-api")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "LUMINA_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
