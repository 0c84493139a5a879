package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/factorpool/internal/updater"
)

// writeNewCmd materializes every new factor
var writeNewCmd = &cobra.Command{
	Use:   "write-new",
	Short: "새 팩터 전체 기간 계산 및 저장",
	Long: `데이터셋이 없는 팩터를 전체 기간으로 계산하고
팩터 값, 테스트 지표, 설정 파일, 리포트를 저장합니다.

데이터가 부족한 팩터는 건너뜁니다.

Example:
  go run ./cmd/factor write-new --config run.yaml`,
	RunE: runWriteNew,
}

func init() {
	rootCmd.AddCommand(writeNewCmd)
}

func runWriteNew(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	defer a.flushMetrics()

	summary, err := a.updater.WriteNewFactors(cmd.Context())
	printSummary("Written", summary)
	if err != nil {
		return fmt.Errorf("write new factors: %w", err)
	}
	return nil
}

func printSummary(verb string, s *updater.Summary) {
	if s == nil {
		return
	}
	fmt.Printf("%s: %s\n", verb, joinOrDash(s.Succeeded))
	fmt.Printf("Skipped: %s\n", joinOrDash(s.Skipped))
	fmt.Printf("Failed:  %s\n", joinOrDash(s.Failed))
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
