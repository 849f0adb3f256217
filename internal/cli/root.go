// Package cli implements the workerd command line: a local server that hosts
// the test worker with in-memory bindings.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdk "github.com/tarmac-project/bindings"
	"github.com/tarmac-project/bindings/harness"
	"github.com/tarmac-project/bindings/internal/testworker"
	"github.com/tarmac-project/bindings/router"
)

var (
	cfgFile       string
	currentConfig Config
)

var rootCmd = &cobra.Command{
	Use:           "workerd",
	Short:         "workerd runs the test worker against in-memory bindings",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		currentConfig = cfg
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (e.g., workerd.yaml)")
	rootCmd.PersistentFlags().String("namespace", "", "runtime namespace shared by the worker and host")
	rootCmd.PersistentFlags().String("base-url", harness.DefaultBaseURL, "base URL requests are resolved against")

	_ = viper.BindPFlag("namespace", rootCmd.PersistentFlags().Lookup("namespace"))
	_ = viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))

	rootCmd.AddCommand(serveCmd, dispatchCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	bindEnv(viper.GetViper())
}

// bindEnv lets WORKERD_* environment variables override config keys.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("WORKERD")
	v.AutomaticEnv()
}

// newHarness hosts the test worker using cfg.
func newHarness(cfg Config) (*harness.Harness, error) {
	worker := testworker.New(router.Config{SDKConfig: sdk.RuntimeConfig{Namespace: cfg.Namespace}})
	return harness.New(harness.Config{
		Worker:    worker,
		BaseURL:   cfg.BaseURL,
		Namespace: cfg.Namespace,
		Vectorize: cfg.Bindings(),
	})
}
