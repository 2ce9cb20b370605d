package notifysalesteam

import (
	"time"

	"aivy-conversation/internal/common/config"
)

type Config struct {
	Timeout             time.Duration
	EmailEnabled        bool
	SMSEnabled          bool
	SalesEmail          string
	SalesPhone          string
	SMSForBudgetHolders bool
}

func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}

func ConfigFromApp(appConfig *config.Config) *Config {
	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if wc, ok := appConfig.Workers[TaskType]; ok && wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	cfg.EmailEnabled = appConfig.Integrations.AWS.SES.Enabled
	cfg.SMSEnabled = appConfig.Integrations.AWS.SNS.Enabled
	cfg.SalesEmail = appConfig.Notifications.SalesEmail
	cfg.SalesPhone = appConfig.Notifications.SalesPhone
	cfg.SMSForBudgetHolders = appConfig.Notifications.SMSForBudgetHolders
	return cfg
}
