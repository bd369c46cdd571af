package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/homestock/internal/config"
	"github.com/MarcoPoloResearchLab/homestock/internal/store"
	"github.com/MarcoPoloResearchLab/homestock/internal/tui"
	"github.com/MarcoPoloResearchLab/homestock/internal/view"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "homestock",
		Short: "Homestock household inventory client",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("server-url", defaults.GetString("server.url"), "Store API base URL")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("passcode", "", "Admin passcode (overrides env)")

	bindFlag(cmd, "server.url", "server-url")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "admin.passcode", "passcode")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runClient(ctx context.Context) error {
	appConfig, err := config.LoadClient(viper.GetViper())
	if err != nil {
		return err
	}

	logger := zap.NewNop()

	client := store.NewClient(appConfig.ServerURL, logger)
	if err := client.EstablishSession(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w (check --server-url and try again)", err)
	}

	var program *tea.Program
	controller, err := view.NewController(view.ControllerConfig{
		Store:    client,
		Passcode: appConfig.AdminPasscode,
		Frames: func(frame view.Frame) {
			program.Send(tui.FrameMsg{Frame: frame})
		},
		Notify: func(text string) {
			program.Send(tui.NotifyMsg{Text: text})
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	app := tui.NewApp(controller, appConfig.Categories)
	program = tea.NewProgram(app, tea.WithAltScreen())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	controllerErr := make(chan error, 1)
	go func() {
		controllerErr <- controller.Run(runCtx)
	}()

	if _, err := program.Run(); err != nil {
		return err
	}
	cancel()

	if err := <-controllerErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
