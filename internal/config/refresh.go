package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RefreshConfigHolder serves the refresh worker settings and hot-reloads them
// from refresh.yml so operators can retune intervals without a restart.
type RefreshConfigHolder struct {
	current atomic.Value // holds RefreshConfig
}

func NewRefreshConfigHolder(cfg Config) (*RefreshConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("refresh")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/creditledger/config") // Volume-mounted config
	v.AddConfigPath("/etc/creditledger")            // System config
	v.AddConfigPath(".")                            // Current directory (dev mode)

	v.SetEnvPrefix("CREDITLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &RefreshConfigHolder{}
	holder.current.Store(cfg.Refresh)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file; the env-derived defaults stay in effect.
		return holder, nil
	}

	loaded := cfg.Refresh
	if err := v.UnmarshalKey("refresh", &loaded); err != nil {
		return nil, err
	}
	if err := validateRefreshConfig(loaded); err != nil {
		return nil, err
	}
	holder.current.Store(loaded)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := holder.Get()
		if err := v.UnmarshalKey("refresh", &updated); err != nil {
			log.Printf("[refresh-config] reload failed: %v", err)
			return
		}
		if err := validateRefreshConfig(updated); err != nil {
			log.Printf("[refresh-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[refresh-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RefreshConfigHolder) Get() RefreshConfig {
	return h.current.Load().(RefreshConfig)
}

func validateRefreshConfig(cfg RefreshConfig) error {
	if cfg.RunInterval < time.Second {
		return errors.New("refresh.runInterval must be at least one second")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("refresh.batchSize must be positive")
	}
	if cfg.JobTimeout <= 0 {
		return errors.New("refresh.jobTimeout must be positive")
	}
	return nil
}
