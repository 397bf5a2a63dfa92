package config

import (
	"github.com/garyjia/expenseflow/internal/container"
)

// ToContainerConfig converts the file-based Config into the container's configuration.
func (c *Config) ToContainerConfig() *container.Config {
	rates := make(map[string]string, len(c.Currency.Rates))
	for code, rate := range c.Currency.Rates {
		rates[code] = rate
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
		Currency: container.CurrencyConfig{
			Base:  c.Currency.Base,
			Rates: rates,
		},
		Storage: container.StorageConfig{
			ArchiveDir: c.Report.ArchiveDir,
		},
		Report: container.ReportConfig{
			SheetName: c.Report.SheetName,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
		},
		Worker: container.WorkerConfig{
			ReminderEnabled:    c.Reminder.Enabled,
			ReminderInterval:   c.Reminder.Interval,
			ReminderStaleAfter: c.Reminder.StaleAfter,
		},
	}
}
