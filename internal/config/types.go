package config

// Config is the full on-disk configuration. Unknown fields are rejected
// so typos surface at load time instead of silently disabling features.
type Config struct {
	Timezone  string          `json:"timezone"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Store     StoreConfig     `json:"store"`
	Storage   StorageConfig   `json:"storage"`
}

type LoggingConfig struct {
	Level    string             `json:"level"`
	Console  bool               `json:"console"`
	File     LogFileConfig      `json:"file"`
	Telegram TelegramSinkConfig `json:"telegram"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// TelegramSinkConfig forwards warn/error logs to an operations chat.
type TelegramSinkConfig struct {
	Enabled    bool   `json:"enabled"`
	BotToken   string `json:"bot_token"`
	ChatID     int64  `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type SchedulerConfig struct {
	Workers                int `json:"workers"`
	QueueSize              int `json:"queue_size"`
	DefaultLeadTimeMinutes int `json:"default_lead_time_minutes"`
}

type DispatchConfig struct {
	Driver          string `json:"driver"` // fcm | dryrun
	CredentialsPath string `json:"credentials_path"`
	RatePerSec      int    `json:"rate_per_sec"`
}

type StoreConfig struct {
	Driver      string `json:"driver"` // rest | postgres
	RestURL     string `json:"rest_url"`
	RestAPIKey  string `json:"rest_api_key"`
	DatabaseURL string `json:"database_url"`
}

type StorageConfig struct {
	Driver string `json:"driver"` // none | sqlite
	Path   string `json:"path"`
}

// Default returns the built-in configuration. The original deployment
// targeted Asia/Kolkata with a 5 minute lead; both stay the defaults.
func Default() *Config {
	return &Config{
		Timezone: "Asia/Kolkata",
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Scheduler: SchedulerConfig{
			Workers:                2,
			QueueSize:              256,
			DefaultLeadTimeMinutes: 5,
		},
		Dispatch: DispatchConfig{
			Driver:     "fcm",
			RatePerSec: 10,
		},
		Store: StoreConfig{
			Driver: "rest",
		},
		Storage: StorageConfig{
			Driver: "none",
		},
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = d.Scheduler.Workers
	}
	if c.Scheduler.QueueSize <= 0 {
		c.Scheduler.QueueSize = d.Scheduler.QueueSize
	}
	if c.Scheduler.DefaultLeadTimeMinutes <= 0 {
		c.Scheduler.DefaultLeadTimeMinutes = d.Scheduler.DefaultLeadTimeMinutes
	}
	if c.Dispatch.Driver == "" {
		c.Dispatch.Driver = d.Dispatch.Driver
	}
	if c.Dispatch.RatePerSec <= 0 {
		c.Dispatch.RatePerSec = d.Dispatch.RatePerSec
	}
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = d.Storage.Driver
	}
}
