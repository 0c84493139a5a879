package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	runConfigFile string
	env           string
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "factor",
	Short: "Factor pool - 팩터 데이터셋 생성 및 증분 업데이트",
	Long: `Factor Pool CLI

등록된 팩터를 계산하고 테스트 지표와 함께 저장한 뒤,
최근 데이터로 증분 업데이트합니다.

Usage:
  go run ./cmd/factor [command]

Examples:
  go run ./cmd/factor discover --config run.yaml
  go run ./cmd/factor write-new --config run.yaml
  go run ./cmd/factor update momentum --lookback 30
  go run ./cmd/factor update-pool
  go run ./cmd/factor report momentum 1d
  go run ./cmd/factor scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the command context so long runs stop between factors.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&runConfigFile, "config", "", "run config file (default is $FACTOR_RUN_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
