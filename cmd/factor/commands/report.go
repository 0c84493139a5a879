package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/report"
	"github.com/wonny/factorpool/internal/store"
)

// reportCmd renders the report of one persisted dataset
var reportCmd = &cobra.Command{
	Use:   "report [factor] [frequency]",
	Short: "저장된 데이터셋 리포트 생성",
	Long: `저장된 팩터 데이터셋에서 그룹 수익률 차트와 통계 테이블을 만들고
통계 테이블을 터미널에 출력합니다.

Example:
  go run ./cmd/factor report momentum 1d
  go run ./cmd/factor report momentum 5min --print-only`,
	Args: cobra.ExactArgs(2),
	RunE: runReport,
}

var (
	// Report flags
	reportPrintOnly bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportPrintOnly, "print-only", false, "파일을 쓰지 않고 통계만 출력")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	name := args[0]
	freq, err := contracts.ParseFrequency(args[1])
	if err != nil {
		return err
	}

	layout := store.NewLayout(cfg.Factor.DataRoot)
	ds, err := layout.Open(cmd.Context(), name, freq)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}

	em, err := report.New(layout, name, report.PersistedReader{Dataset: ds}, log)
	if err != nil {
		return err
	}

	if !reportPrintOnly {
		out, err := em.Write()
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if out.Chart != "" {
			fmt.Printf("Chart: %s\n", out.Chart)
		}
		fmt.Printf("Table: %s\n\n", out.Table)
	}

	em.Statistics().Render(os.Stdout)
	return nil
}
