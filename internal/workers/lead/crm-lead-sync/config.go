package crmleadsync

import (
	"time"

	"aivy-conversation/internal/common/config"
)

const DefaultLeadSource = "AIVY Chat"

type Config struct {
	Timeout    time.Duration
	LeadSource string
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		LeadSource: DefaultLeadSource,
	}
}

func ConfigFromApp(appConfig *config.Config) *Config {
	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if wc, ok := appConfig.Workers[TaskType]; ok && wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
