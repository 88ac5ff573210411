package tool

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/batchshare/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		BotName:          "Batch Share Bot",
		Version:          "1.0.0",
		AdminIDs:         []int64{},
		ForceSubChannels: []types.ChannelConfig{},
		DatabaseDSN:      "batchshare.db",
		HTTPAddr:         "127.0.0.1:8080",
		RateLimitPerSec:  25, // bot api allows ~30 msg/s globally
		PollTimeout:      60,
	}
}

// LoadConfig reads path (default config.yaml), writing a default file when none exists,
// then applies environment overrides and normalizes channel ids.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	switch {
	case err != nil && os.IsNotExist(err):
		if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
			return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
		}
		DefaultLogger.Infof("Created new config file at %s", path)
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	case info.IsDir():
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	cfg.ForceSubChannels = normalizeChannels(cfg.ForceSubChannels)

	CurrentConfig = cfg
	return cfg, nil
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}

// applyEnvOverrides lets deployments keep secrets out of config.yaml.
func applyEnvOverrides(cfg *types.AppConfig) error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("BOT_NAME"); v != "" {
		cfg.BotName = v
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" {
		ids, err := ParseIDList(v)
		if err != nil {
			return fmt.Errorf("invalid ADMIN_IDS: %v", err)
		}
		cfg.AdminIDs = ids
	}
	if v := os.Getenv("DB_CHANNEL_ID"); v != "" {
		id, err := NormalizeChannelID(v)
		if err != nil {
			return fmt.Errorf("invalid DB_CHANNEL_ID: %v", err)
		}
		cfg.DBChannelID = id
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CHANNEL_LINK"); v != "" {
		cfg.ChannelLink = v
	}
	if v := os.Getenv("DEVELOPER_LINK"); v != "" {
		cfg.DeveloperLink = v
	}

	envChannels := []types.ChannelConfig{
		{ID: os.Getenv("FSUB_CHNL_ID"), Link: os.Getenv("FSUB_CHNL_LINK"), Name: "Main"},
		{ID: os.Getenv("FSUB_CHNL_2_ID"), Link: os.Getenv("FSUB_CHNL_2_LINK"), Name: "Second"},
	}
	var fromEnv []types.ChannelConfig
	for _, ch := range envChannels {
		if ch.ID != "" && ch.Link != "" {
			fromEnv = append(fromEnv, ch)
		}
	}
	if len(fromEnv) > 0 {
		cfg.ForceSubChannels = fromEnv
	}
	return nil
}

// ParseIDList parses a comma or space separated list of integer ids.
func ParseIDList(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NormalizeChannelID accepts "-1001234", "1234" or "-1234" style ids and returns the
// -100 prefixed form used by the bot api for channels.
func NormalizeChannelID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "-100")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return 0, fmt.Errorf("empty channel id")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("malformed channel id %q", raw)
	}
	return strconv.ParseInt("-100"+strconv.FormatInt(n, 10), 10, 64)
}

func normalizeChannels(channels []types.ChannelConfig) []types.ChannelConfig {
	out := make([]types.ChannelConfig, 0, len(channels))
	for _, ch := range channels {
		if ch.ID == "" || ch.Link == "" {
			continue
		}
		id, err := NormalizeChannelID(ch.ID)
		if err != nil {
			DefaultLogger.Errorf("Invalid channel ID format for %s channel: %s", ch.Name, ch.ID)
			continue
		}
		ch.ID = strconv.FormatInt(id, 10)
		out = append(out, ch)
	}
	return out
}
