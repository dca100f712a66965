package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "SCOUTCTL"
	defaultAddr    = "http://127.0.0.1:8080"
	defaultTimeout = 10 * time.Second
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scoutctl",
		Short:        "Inspect and operate a ScoutBot request governor",
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().String("addr", defaultAddr, "ScoutBot HTTP address.")
	cmd.PersistentFlags().Duration("timeout", defaultTimeout, "Request timeout.")
	_ = viper.BindPFlag("addr", cmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("timeout", cmd.PersistentFlags().Lookup("timeout"))

	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newBlockStatsCmd())
	cmd.AddCommand(newAlertsCmd())
	cmd.AddCommand(newResetCmd())

	return cmd
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func clientFromFlags() (*apiClient, error) {
	addr := strings.TrimSpace(viper.GetString("addr"))
	if addr == "" {
		return nil, fmt.Errorf("missing --addr (or %s_ADDR)", envPrefix)
	}
	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return newAPIClient(addr, timeout), nil
}
