package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFlagName = "config"
	envPrefix      = "MACROPAD"
)

// addConfigFlag registers the --config flag on the binary's FlagSet.
func addConfigFlag(name string, fs *pflag.FlagSet) {
	fs.StringP(configFlagName, "c", "",
		fmt.Sprintf("Path to the %s configuration file.", name))
}

// bindConfig layers configuration sources under the parsed flags: an
// explicit or discovered config file, then MACROPAD_* environment
// variables, then flag defaults. Explicit flags always win.
func bindConfig(name string, fs *pflag.FlagSet, opts CliOptions) error {
	v := viper.New()

	cfgFile, _ := fs.GetString(configFlagName)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(name)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", name))
		}
		v.AddConfigPath(filepath.Join("/etc", name))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	if opts != nil {
		if err := v.Unmarshal(opts); err != nil {
			return fmt.Errorf("apply config: %w", err)
		}
	}
	return nil
}
