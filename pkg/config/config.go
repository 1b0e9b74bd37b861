package config

import "time"

// ChatClient definition chat_client YAML structure
type ChatClient struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	ChannelURL string `mapstructure:"channel_url"`

	Reconnect    ReconnectConfig    `mapstructure:"reconnect"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// DevServer definition dev_server YAML structure
type DevServer struct {
	Port string `mapstructure:"port"`
}

// ReconnectConfig definition channel reconnect backoff bounds
type ReconnectConfig struct {
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// ConversationConfig definition conversation store tuning
type ConversationConfig struct {
	SendDebounce time.Duration `mapstructure:"send_debounce"`
	TypingIdle   time.Duration `mapstructure:"typing_idle"`
}

// NotificationConfig definition notification dispatcher tuning
type NotificationConfig struct {
	DedupWindow time.Duration `mapstructure:"dedup_window"`
}
