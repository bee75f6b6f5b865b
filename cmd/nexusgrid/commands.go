package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/auth"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/config"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/junction"
)

// defaultConfigPath is used when neither --config nor NEXUSGRID_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

// newRootCmd builds the command tree. Running the binary with no
// subcommand serves.
func newRootCmd() *cobra.Command {
	var configFlag string

	root := &cobra.Command{
		Use:   "nexusgrid",
		Short: "Signal control arbitration engine",
		Long: `Nexus Grid drives a network of signalised junctions from one logical
clock, arbitrating between the automatic phase cycle, operator overrides
and emergency vehicle preemption.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configFlag)
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"config file (default $NEXUSGRID_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the engine, tick driver, MQTT bridge and API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), configFlag)
			},
		},
		newTokenCmd(&configFlag),
		newCheckConfigCmd(&configFlag),
	)
	return root
}

// newTokenCmd issues an API bearer token signed with the configured secret.
func newTokenCmd(configFlag *string) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
			}
			token, err := auth.GenerateAccessToken(subject, r, cfg.Security.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject, e.g. an operator ID (required)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleViewer), "viewer, operator or dispatcher")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default security.jwt.access_token_ttl)")
	//nolint:errcheck // flag is registered above
	cmd.MarkFlagRequired("subject")
	return cmd
}

// newCheckConfigCmd validates the configuration and junction catalogue
// without touching the database or broker.
func newCheckConfigCmd(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and junction catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			table, src, err := junction.Resolve(cmd.Context(), cfg.Control.JunctionsFile, nil, nil)
			if err != nil {
				return fmt.Errorf("junction catalogue: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:      %s\n", path)
			fmt.Fprintf(out, "catalogue:   %s (%s)\n", cfg.Control.JunctionsFile, src)
			fmt.Fprintf(out, "junctions:   %d\n", len(table.Junctions()))
			fmt.Fprintf(out, "corridors:   %d\n", len(table.Corridors()))
			fmt.Fprintf(out, "tick:        %s\n", cfg.Control.TickInterval)
			fmt.Fprintf(out, "mqtt:        %t\n", cfg.MQTT.Enabled)
			fmt.Fprintf(out, "api:         %t\n", cfg.API.Enabled)
			fmt.Fprintf(out, "influxdb:    %t\n", cfg.InfluxDB.Enabled)
			return nil
		},
	}
}

// configPath returns the --config flag, else NEXUSGRID_CONFIG, else the
// default. explicit is false only for the default.
func configPath(flag string) (path string, explicit bool) {
	if flag != "" {
		return flag, true
	}
	if env := os.Getenv("NEXUSGRID_CONFIG"); env != "" {
		return env, true
	}
	return defaultConfigPath, false
}

// loadConfig loads the configuration file. A missing default file falls
// back to the built-in configuration; a missing explicit file is an error.
func loadConfig(flag string) (*config.Config, string, error) {
	path, explicit := configPath(flag)
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}

	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, "built-in", fmt.Errorf("built-in config: %w", err)
	}
	return cfg, "built-in", nil
}
