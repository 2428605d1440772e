package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

var listAsYAML bool

// secretKeys are masked when settings are printed
var secretKeys = map[string]bool{
	"openai.api_key": true,
	"s3.access_key":  true,
	"s3.secret_key":  true,
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Show and change configuration settings.

Settings live in a YAML file in your user configuration directory
(~/.ruling-to-text/config.yaml) unless --config points elsewhere. Every key
can also be set through the environment, e.g. RULING_TEXT_OCR_ENGINE=openai.

Available commands:
  list  - List the effective value of every setting
  get   - Get a specific setting
  set   - Store a setting in the config file

Examples:
  ruling-to-text config list                          # List all settings
  ruling-to-text config list --yaml                   # Same, as a YAML document
  ruling-to-text config get ocr.engine                # Get the OCR engine
  ruling-to-text config set ocr.language jpn+eng      # Recognize Japanese and English
  ruling-to-text config set tools.pdftoppm /opt/poppler/bin/pdftoppm`,
}

// listConfig lists all configuration settings
func listConfig(w io.Writer) error {
	v, err := config.NewViper(configFile)
	if err != nil {
		return err
	}

	if listAsYAML {
		settings := v.AllSettings()
		maskSettings(settings, "")
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(settings); err != nil {
			return utils.WrapError(err, utils.ErrorTypeIO, "failed to encode settings")
		}
		return enc.Close()
	}

	fmt.Fprintln(w, "🛠️  Configuration")
	fmt.Fprintln(w, "=================")
	if used := v.ConfigFileUsed(); used != "" {
		fmt.Fprintf(w, "📁 Config file: %s\n\n", used)
	} else {
		path, _ := config.GetConfigFilePath()
		fmt.Fprintf(w, "📁 Config file: %s (not present)\n\n", path)
	}

	for _, key := range config.ListConfigKeys() {
		fmt.Fprintf(w, "  %-30s = %s\n", key, displayValue(key, v.Get(key)))
	}

	fmt.Fprintf(w, "\n💡 Tip: Use '%s config set <key> <value>' to change a setting\n", constants.AppName)
	fmt.Fprintf(w, "💡 Tip: Environment variables use the %s_ prefix, e.g. %s_CONCURRENCY=4\n", config.EnvPrefix, config.EnvPrefix)
	return nil
}

// getConfig gets a specific configuration value
func getConfig(w io.Writer, key string) error {
	v, err := config.NewViper(configFile)
	if err != nil {
		return err
	}
	value, err := config.GetConfigValue(v, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "📝 %s = %s\n", key, displayValue(key, value))
	return nil
}

// setConfig sets a specific configuration value
func setConfig(w io.Writer, key, value string) error {
	path, err := config.SetConfigValue(configFile, key, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✅ Successfully set %s = %s\n", key, displayValue(key, value))
	fmt.Fprintf(w, "📁 Saved to %s\n", path)
	if strings.HasPrefix(key, "tools.") {
		fmt.Fprintf(w, "💡 Tip: Run '%s check' to verify the tool is found\n", constants.AppName)
	}
	return nil
}

// displayValue returns a display-friendly value for empty strings and secrets
func displayValue(key string, value interface{}) string {
	s := fmt.Sprintf("%v", value)
	switch {
	case s == "":
		return "(not set)"
	case secretKeys[key]:
		return mask(s)
	case strings.ContainsAny(s, "\n\t\f "):
		return fmt.Sprintf("%q", s)
	default:
		return s
	}
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", 6) + s[len(s)-2:]
}

func maskSettings(settings map[string]interface{}, prefix string) {
	for k, v := range settings {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			maskSettings(nested, key)
			continue
		}
		if s, ok := v.(string); ok && s != "" && secretKeys[key] {
			settings[k] = mask(s)
		}
	}
}

// configListCmd represents the 'config list' command
var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return usageOnError(listConfig(cmd.OutOrStdout()))
	},
}

// configGetCmd represents the 'config get' command
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return usageOnError(getConfig(cmd.OutOrStdout(), args[0]))
	},
}

// configSetCmd represents the 'config set' command
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting in the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return usageOnError(setConfig(cmd.OutOrStdout(), args[0], args[1]))
	},
}

func usageOnError(err error) error {
	if err == nil {
		return nil
	}
	return usageError(err)
}

func init() {
	// Add config command to root
	rootCmd.AddCommand(configCmd)

	// Add subcommands to config
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configListCmd.Flags().BoolVar(&listAsYAML, "yaml", false, "Print the settings as YAML")
}
