package queryinternaldata

import (
	"time"

	"aivy-conversation/internal/common/config"
)

type Config struct {
	Timeout         time.Duration
	ExecutiveFilter bool
}

func DefaultConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}

func ConfigFromApp(appConfig *config.Config) *Config {
	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if wc, ok := appConfig.Workers[TaskType]; ok && wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	cfg.ExecutiveFilter = appConfig.Conversation.ExecutiveFilter
	return cfg
}
