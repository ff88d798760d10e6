package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/uxray-ai/uxray/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .uxray.yaml config file",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false,
		"overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := ".uxray.yaml"
	if cfgFile != "" {
		path = cfgFile
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	// Sanity check that the template is valid YAML before writing it.
	var probe map[string]interface{}
	if err := yaml.Unmarshal([]byte(config.DefaultConfigYAML), &probe); err != nil {
		return fmt.Errorf("default config template is invalid: %w", err)
	}

	if err := os.WriteFile(path, []byte(config.DefaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Set provider API keys via environment (e.g. UXRAY_PROVIDERS_GPT4_VISION_API_KEY) or edit the file.")
	return nil
}
