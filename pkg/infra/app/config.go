package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kart-io/sentinel-rag/pkg/infra/config"
)

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// configPaths lists the directories searched for <name>.yaml when no
// --config flag is given.
func configPaths(name string) []string {
	return []string{
		".",
		"./configs",
		filepath.Join(os.Getenv("HOME"), "."+name),
		"/etc/" + name,
	}
}

// envPrefix turns "sentinel-rag" into "SENTINEL_RAG".
func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// loadConfig reads the config file, applies environment overrides and
// decodes the result into the options. Flags set on the command line win.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.viper
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		for _, dir := range configPaths(a.name) {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		logger.Infow("Config file loaded", "file", v.ConfigFileUsed())
		if a.onChange != nil {
			w := config.NewWatcher(v)
			w.Subscribe(a.name, a.onChange)
			w.Start()
		}
	}

	expandEnv(v)
	v.SetEnvPrefix(envPrefix(a.name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.options == nil {
		return nil
	}

	// Unmarshal overwrites values set on the command line, so they are
	// recorded first and applied again. Slices use Replace since Set appends
	// to a flag that was already set.
	changed := make(map[string]string)
	slices := make(map[string][]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			slices[f.Name] = sv.GetSlice()
			return
		}
		changed[f.Name] = f.Value.String()
	})
	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for name, val := range changed {
		if err := cmd.Flags().Set(name, val); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}
	for name, vals := range slices {
		if err := cmd.Flags().Lookup(name).Value.(pflag.SliceValue).Replace(vals); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}
	return nil
}

// expandEnv replaces ${VAR} and $VAR in string values. Unset variables are
// left as written.
func expandEnv(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envPattern.ReplaceAllStringFunc(s, func(match string) string {
			name := strings.TrimPrefix(match, "$")
			name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")
			if val, ok := os.LookupEnv(name); ok && val != "" {
				return val
			}
			return match
		})
		if expanded != s {
			v.Set(key, expanded)
		}
	}
}
