package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// updateCmd extends one factor with recent data
	updateCmd = &cobra.Command{
		Use:   "update [factor]",
		Short: "팩터 증분 업데이트",
		Long: `최근 데이터로 팩터를 다시 계산해 기존 데이터셋 뒤에 이어 붙입니다.

기존 파일은 타임스탬프 폴더로 보관되며, 병합 조건을 만족하지 않는
테이블은 보관본에서 그대로 복원됩니다.

Example:
  go run ./cmd/factor update momentum --lookback 30`,
		Args: cobra.ExactArgs(1),
		RunE: runUpdate,
	}

	// updatePoolCmd extends every materialized factor
	updatePoolCmd = &cobra.Command{
		Use:   "update-pool",
		Short: "전체 팩터 풀 증분 업데이트",
		Long: `데이터셋이 있는 모든 팩터를 이름 순서로 업데이트합니다.
실패한 팩터는 로그에 남기고 나머지는 계속 진행합니다.

Example:
  go run ./cmd/factor update-pool --lookback 30`,
		RunE: runUpdatePool,
	}

	// Update flags
	lookbackDays int
)

func init() {
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(updatePoolCmd)

	for _, c := range []*cobra.Command{updateCmd, updatePoolCmd} {
		c.Flags().IntVar(&lookbackDays, "lookback", 0, "영업일 기준 재계산 기간 (default: config)")
	}
}

func lookback(a *app) int {
	if lookbackDays > 0 {
		return lookbackDays
	}
	return a.lookback
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	defer a.flushMetrics()

	name := args[0]
	if err := a.updater.UpdateFactor(cmd.Context(), name, lookback(a)); err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}

	fmt.Printf("✅ %s updated\n", name)
	return nil
}

func runUpdatePool(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	defer a.flushMetrics()

	summary, err := a.updater.UpdateFactorPool(cmd.Context(), lookback(a))
	printSummary("Updated", summary)
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	return nil
}
