package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FractalBrew/geckocpp/internal/config"
)

var (
	configFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage configuration",
	Long: `Show the effective configuration (global config overlaid with the
folder's geckocpp.toml), write a default global config, or print where the
global config lives.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run:   runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default global configuration file",
	Run:   runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the global configuration directory",
	Run:   runConfigPath,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format (toml, json)")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	root := mustResolveFolder()
	cfg := mustLoadConfig(root)

	var (
		data []byte
		err  error
	)
	switch configFormat {
	case "toml":
		data, err = cfg.RenderTOML()
	case "json":
		data, err = cfg.RenderJSON()
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s\n", configFormat)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(data))
}

func runConfigInit(cmd *cobra.Command, args []string) {
	dir, err := config.GlobalDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := config.DefaultConfig().Save(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default configuration under %s\n", dir)
}

func runConfigPath(cmd *cobra.Command, args []string) {
	dir, err := config.GlobalDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(dir)
}
