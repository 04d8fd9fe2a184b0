package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/config"
	"github.com/derickschaefer/tally/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tally configuration",
	Long:  `Read and write tally configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		tmpl := config.Template()
		if err := config.WriteFile(path, tmpl); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  base_url points the dashboard at the analytics backend.")
		fmt.Fprintln(cmd.OutOrStdout(), "  Set api_key (or SUMUP_API_KEY) only if you run 'tally serve'.")
		return nil
	},
}

var configGetShowSecrets bool

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.BaseURL)
		if err != nil {
			return err
		}
		applyFlags(cfg)

		apiKey := "(not set)"
		if cfg.APIKey != "" {
			apiKey = cfg.RedactedAPIKey()
			if configGetShowSecrets {
				apiKey = cfg.APIKey
			}
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		if resolveFormat(cfg.Format) == render.FormatJSON {
			type configOut struct {
				BaseURL        string   `json:"base_url"`
				DBPath         string   `json:"db_path"`
				Format         string   `json:"default_format"`
				Timeout        string   `json:"timeout"`
				Rate           float64  `json:"rate"`
				APIKey         string   `json:"api_key"`
				UpstreamURL    string   `json:"upstream_url"`
				ListenAddr     string   `json:"listen_addr"`
				AllowedOrigins []string `json:"allowed_origins"`
				ConfigFile     string   `json:"config_file"`
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				BaseURL:        cfg.BaseURL,
				DBPath:         cfg.DBPath,
				Format:         cfg.Format,
				Timeout:        cfg.Timeout.String(),
				Rate:           cfg.Rate,
				APIKey:         apiKey,
				UpstreamURL:    cfg.UpstreamURL,
				ListenAddr:     cfg.ListenAddr,
				AllowedOrigins: cfg.AllowedOrigins,
				ConfigFile:     src,
			})
		}

		origins := "*"
		if len(cfg.AllowedOrigins) > 0 {
			origins = strings.Join(cfg.AllowedOrigins, ", ")
		}
		printKVTableTo(cmd.OutOrStdout(), [][]string{
			{"base_url", cfg.BaseURL},
			{"db_path", cfg.DBPath},
			{"default_format", cfg.Format},
			{"timeout", cfg.Timeout.String()},
			{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
			{"api_key", apiKey},
			{"upstream_url", cfg.UpstreamURL},
			{"listen_addr", cfg.ListenAddr},
			{"allowed_origins", origins},
			{"config_file", src},
		})
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		// Load existing file or start from template
		var f config.File
		existing, path, err := loadConfigFile()
		if err != nil {
			path = config.DefaultConfigFile
			f = config.Template()
		} else {
			f = *existing
		}

		if err := setConfigValue(&f, key, val); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

// setConfigValue assigns one config.json field by its JSON name.
func setConfigValue(f *config.File, key, val string) error {
	switch key {
	case "base_url":
		f.BaseURL = val
	case "db_path":
		f.DBPath = val
	case "default_format", "format":
		f.DefaultFormat = val
	case "timeout":
		f.Timeout = val
	case "rate":
		var r float64
		if _, err := fmt.Sscanf(val, "%f", &r); err != nil {
			return fmt.Errorf("rate must be a number")
		}
		f.Rate = r
	case "api_key":
		f.APIKey = val
	case "upstream_url":
		f.UpstreamURL = val
	case "listen_addr":
		f.ListenAddr = val
	case "allowed_origins":
		f.AllowedOrigins = nil
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				f.AllowedOrigins = append(f.AllowedOrigins, o)
			}
		}
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: base_url, db_path, default_format, timeout, rate, api_key, upstream_url, listen_addr, allowed_origins", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "show API key in plain text")
}

// loadConfigFile reads config.json from cwd; used by configSetCmd.
func loadConfigFile() (*config.File, string, error) {
	path := config.DefaultConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", err
	}
	return &f, path, nil
}
