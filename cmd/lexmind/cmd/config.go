package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/lexmind/configs"
	"github.com/Aman-CERP/lexmind/internal/config"
	"github.com/Aman-CERP/lexmind/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage LexMind configuration files.

Configuration precedence (lowest to highest):
  1. Defaults
  2. User config ($XDG_CONFIG_HOME/lexmind/config.yaml)
  3. Project config (.lexmind.yaml)
  4. Environment variables (LEXMIND_*)`,
		Example: `  # Create .lexmind.yaml in the project directory
  lexmind config init

  # Create the user config instead
  lexmind config init --user

  # Show the effective configuration
  lexmind config show --json`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force, user bool

	cmd := &cobra.Command{
		Use:   "init",
		Short:       "Create a configuration file from the template",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetupAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, user, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&user, "user", false, "Create the user config instead of .lexmind.yaml")
	return cmd
}

func runConfigInit(cmd *cobra.Command, user, force bool) error {
	out := output.New(cmd.OutOrStdout())

	path := filepath.Join(projectDir, config.ProjectConfigNames[0])
	template := configs.ProjectConfigTemplate
	if user {
		path = config.UserConfigPath()
		if path == "" {
			return fmt.Errorf("cannot determine user config directory")
		}
		template = configs.UserConfigTemplate
	}

	if _, err := os.Stat(path); err == nil && !force {
		out.Warningf("%s already exists (use --force to overwrite)", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	out.Successf("Created %s", path)
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shown := *cfg
			shown.Embeddings.OpenAIToken = ""
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(shown)
			}
			data, err := yaml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
