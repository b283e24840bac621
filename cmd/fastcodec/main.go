// Command fastcodec decodes and encodes FAST protocol messages against
// compiled template sets, and runs the codec service's HTTP API, session
// auth and stream publishers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fastcodec/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var configPath string

func main() {
	root := &cobra.Command{
		Use:     "fastcodec",
		Short:   "Decode, encode and serve FAST protocol messages",
		Version: Version,
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to configuration file")
	viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(newDecodeCmd())
	root.AddCommand(newEncodeCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration at the bound --config path, creating
// defaults on first run the way config.Load always does.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = configPath
	}
	return config.Load(path)
}
