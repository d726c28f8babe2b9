package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.tigermatt.uk/keypad/internal/config"
)

var (
	systemConfig bool
	forceConfig  bool
)

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Args:  cobra.ExactArgs(0),
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default settings",
		Args:  cobra.ExactArgs(0),
		RunE:  initConfig,
	}
	initCmd.Flags().BoolVar(&systemConfig, "system", false, "Write the system-wide file instead of the user file")
	initCmd.Flags().BoolVar(&forceConfig, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.ExactArgs(0),
		RunE:  showConfig,
	})

	return cmd
}

func initConfig(cmd *cobra.Command, _ []string) error {
	path := configFile
	if path == "" {
		var err error
		if path, err = config.Path(systemConfig); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !forceConfig {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := config.WriteFile(config.FromDefaults(), path); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func showConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cmd, configFile)
	if err != nil {
		return err
	}

	c.Credential = "******"
	data, err := config.Marshal(c)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}
