package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	deliverydomain "github.com/smallbiznis/recurra/internal/delivery/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EngineConfig tunes the delivery engine without a redeploy.
type EngineConfig struct {
	PreviewLimit int          `mapstructure:"previewLimit"`
	UpcomingDays int          `mapstructure:"upcomingDays"`
	MaxRangeDays int          `mapstructure:"maxRangeDays"`
	Labels       EngineLabels `mapstructure:"labels"`
}

// EngineLabels are the placeholder texts shown for missing references.
type EngineLabels struct {
	UnknownProduct     string `mapstructure:"unknownProduct"`
	Uncategorized      string `mapstructure:"uncategorized"`
	AddressNotInformed string `mapstructure:"addressNotInformed"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PreviewLimit: 5,
		UpcomingDays: 14,
		MaxRangeDays: 366,
		Labels: EngineLabels{
			UnknownProduct:     "Unknown product",
			Uncategorized:      "Uncategorized",
			AddressNotInformed: "Address not informed",
		},
	}
}

const dashboardWeekLead = 6

var defaultEngineConfigPaths = []string{
	"/var/lib/recurra/config", // Volume-mounted config
	"/etc/recurra",            // System config
	".",                       // Current directory (dev mode)
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

// NewEngineConfigHolder loads delivery.yml and keeps it fresh while the file changes.
func NewEngineConfigHolder(log *zap.Logger) (*EngineConfigHolder, error) {
	return newEngineConfigHolder(log, defaultEngineConfigPaths...)
}

// NewStaticEngineConfigHolder returns a holder that never reloads.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func newEngineConfigHolder(log *zap.Logger, paths ...string) (*EngineConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("engine-config")

	v := viper.New()
	v.SetConfigName("delivery")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("RECURRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("delivery.previewLimit", defaults.PreviewLimit)
	v.SetDefault("delivery.upcomingDays", defaults.UpcomingDays)
	v.SetDefault("delivery.maxRangeDays", defaults.MaxRangeDays)
	v.SetDefault("delivery.labels.unknownProduct", defaults.Labels.UnknownProduct)
	v.SetDefault("delivery.labels.uncategorized", defaults.Labels.Uncategorized)
	v.SetDefault("delivery.labels.addressNotInformed", defaults.Labels.AddressNotInformed)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeEngineConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}

	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeEngineConfig(v)
		if err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateEngineConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *EngineConfigHolder) Get() EngineConfig {
	if h == nil {
		return DefaultEngineConfig()
	}
	cfg, ok := h.current.Load().(EngineConfig)
	if !ok {
		return DefaultEngineConfig()
	}
	return cfg
}

// decodeEngineConfig goes through Unmarshal so nested defaults merge with a partial file.
func decodeEngineConfig(v *viper.Viper) (EngineConfig, error) {
	var wrapper struct {
		Delivery EngineConfig `mapstructure:"delivery"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return EngineConfig{}, err
	}
	return wrapper.Delivery, nil
}

func validateEngineConfig(cfg EngineConfig) error {
	if cfg.PreviewLimit <= 0 {
		return errors.New("delivery.previewLimit must be positive")
	}
	if cfg.UpcomingDays <= 0 {
		return errors.New("delivery.upcomingDays must be positive")
	}
	if cfg.MaxRangeDays <= 0 {
		return errors.New("delivery.maxRangeDays must be positive")
	}
	if cfg.MaxRangeDays > deliverydomain.MaxRangeDays {
		return fmt.Errorf("delivery.maxRangeDays cannot exceed %d", deliverydomain.MaxRangeDays)
	}
	// The dashboard window starts on the Monday of the selected week, up to six days
	// before the upcoming preview begins.
	if cfg.UpcomingDays+dashboardWeekLead > cfg.MaxRangeDays {
		return fmt.Errorf("delivery.upcomingDays cannot exceed delivery.maxRangeDays minus %d", dashboardWeekLead)
	}
	return nil
}
