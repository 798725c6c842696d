package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/mq"
	"github.com/shaiso/Autopost/internal/timezone"
)

// EnvPrefix — префикс переменных окружения.
const EnvPrefix = "AUTOPOST"

// Config — конфигурация процесса.
type Config struct {
	// StoragePath — путь к JSON-файлу постов.
	StoragePath string `mapstructure:"storage_path" validate:"required"`

	// CanonicalZone — зона, в которой хранятся все времена.
	CanonicalZone string `mapstructure:"canonical_zone" validate:"required,tzname"`

	// DefaultDeleteAfterHours — автоудаление по умолчанию, 0 — не удалять.
	DefaultDeleteAfterHours float64 `mapstructure:"default_delete_after_hours" validate:"gte=0,lte=2562047"`

	Log    LogConfig    `mapstructure:"log"`
	Notify NotifyConfig `mapstructure:"notify"`

	// MetricsAddr — адрес /metrics и /healthz для console (пусто — не поднимать).
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
}

// LogConfig — настройки логирования.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// NotifyConfig — публикация событий в RabbitMQ.
type NotifyConfig struct {
	// AMQPURL — адрес брокера. Пусто — события только логируются.
	AMQPURL string `mapstructure:"amqp_url" validate:"omitempty,url"`

	// Exchange — обменник событий.
	Exchange string `mapstructure:"exchange" validate:"required"`
}

// DefaultDeleteAfter возвращает DefaultDeleteAfterHours в виде,
// который принимает autopost.Config: nil, если автоудаление выключено.
func (c *Config) DefaultDeleteAfter() *float64 {
	if c.DefaultDeleteAfterHours == 0 {
		return nil
	}
	h := c.DefaultDeleteAfterHours
	return &h
}

// NotifyEnabled проверяет, настроена ли публикация в RabbitMQ.
func (c *Config) NotifyEnabled() bool {
	return c.Notify.AMQPURL != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage_path", "posts.json")
	v.SetDefault("canonical_zone", timezone.DefaultCanonicalZone)
	v.SetDefault("default_delete_after_hours", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("notify.amqp_url", "")
	v.SetDefault("notify.exchange", string(mq.ExchangePosts))
	v.SetDefault("metrics_addr", "")
}

// Load читает конфигурацию. path — файл конфигурации, пусто — только env и defaults.
// Ошибки чтения и проверки сопоставляются с domain.ErrConfiguration.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", domain.ErrConfiguration, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// tzname — имя, которое понимает timezone.ParseZone
	_ = v.RegisterValidation("tzname", func(fl validator.FieldLevel) bool {
		_, err := timezone.ParseZone(fl.Field().String())
		return err == nil
	})

	return v
}

// Validate проверяет конфигурацию.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(msgs, "; "))
}
