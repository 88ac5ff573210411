package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	BotName  string  `yaml:"botName"`
	Version  string  `yaml:"version"`
	BotToken string  `yaml:"botToken"`
	AdminIDs []int64 `yaml:"adminIds"`
	// DBChannelID is the storage channel files are forwarded to.
	DBChannelID int64 `yaml:"dbChannelId"`
	// ForceSubChannels are checked in order, the first failure wins.
	ForceSubChannels []ChannelConfig `yaml:"forceSubChannels"`
	ChannelLink      string          `yaml:"channelLink"`
	DeveloperLink    string          `yaml:"developerLink"`
	DatabaseDSN      string          `yaml:"databaseDsn"` // postgres:// or a sqlite file
	HTTPAddr         string          `yaml:"httpAddr"`
	NotifySocket     string          `yaml:"notifySocket,omitempty"`
	RateLimitPerSec  float64         `yaml:"rateLimitPerSec"`
	PollTimeout      int             `yaml:"pollTimeout"`
}

// ChannelConfig is one required-subscription channel. ID may be written with or without
// the -100 prefix, LoadConfig normalizes it.
type ChannelConfig struct {
	ID   string `yaml:"id"`
	Link string `yaml:"link"`
	Name string `yaml:"name"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log           string
	UseConfigPath string
	UseHTTPAddr   string
	SkipNotify    bool // if true, do not write to the notify unix socket.
}
