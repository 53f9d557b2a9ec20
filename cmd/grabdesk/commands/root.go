package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "grabdesk",
		Short: "grabdesk - desktop screenshot acquisition across display systems",
		Long: `grabdesk captures the desktop (or a single screen) as a pixel buffer on
X11, Wayland and macOS/Windows-style display systems.

It selects the right capture backend for the running environment:
  • Direct windowing-system capture on X11, macOS and Windows
  • The org.freedesktop.portal Screenshot protocol on GNOME/KDE/COSMIC Wayland
  • The grim adapter on wlroots-family Wayland compositors

and reconciles physical against logical pixel geometry so mixed-DPI
multi-monitor layouts come out correctly scaled and cropped.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/grabdesk/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("use-grim", false, "use the grim adapter on generic Wayland compositors")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("use_grim_adapter", rootCmd.PersistentFlags().Lookup("use-grim"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
