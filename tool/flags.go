package tool

import (
	"github.com/spf13/pflag"

	"github.com/moyoez/batchshare/types"
)

// BindFlags registers the serve flags on fs and returns the struct they fill.
func BindFlags(fs *pflag.FlagSet) *types.Config {
	cfg := &types.Config{}
	fs.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	fs.StringVar(&cfg.UseConfigPath, "config", "", "override config file path")
	fs.StringVar(&cfg.UseHTTPAddr, "http-addr", "", "override HTTP listen address")
	fs.BoolVar(&cfg.SkipNotify, "skip-notify", false, "if true, do not write notifications to the unix socket")
	return cfg
}
