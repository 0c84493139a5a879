package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/runstate"
	"github.com/wonny/factorpool/internal/store"
	"github.com/wonny/factorpool/pkg/redis"
)

// statusCmd shows every persisted dataset and the last recorded runs
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "팩터 풀 상태 조회",
	Long: `저장된 팩터 데이터셋의 기간과 마지막 실행 결과를 표시합니다.

표시 정보:
- Frequency별 시작/종료 시각과 저장 시각
- 마지막 실행 작업과 결과 (Redis 사용 시)

Example:
  go run ./cmd/factor status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

const statusTimeLayout = "2006-01-02 15:04"

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	rc, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, run state not shown")
		rc = redis.NewFromRedis(nil, cfg.Redis.Prefix)
	}
	defer rc.Close()
	runs := runstate.New(rc)

	layout := store.NewLayout(cfg.Factor.DataRoot)
	names, err := layout.Factors()
	if err != nil {
		return fmt.Errorf("list factors: %w", err)
	}
	if len(names) == 0 {
		fmt.Printf("No datasets under %s\n", cfg.Factor.DataRoot)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Factor", "Frequency", "Start", "End", "Stamp", "Tables", "Last Run"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")

	for _, name := range names {
		last := "-"
		if run, ok, err := runs.Last(cmd.Context(), name); err != nil {
			log.WithError(err).WithField("factor", name).Warn("Failed to read run state")
		} else if ok {
			last = describeRun(run)
		}

		datasets, err := layout.OpenAll(cmd.Context(), name)
		if err != nil {
			table.Append([]string{name, "-", "-", "-", "-", "-", "error: " + err.Error()})
			continue
		}

		freqs, _ := layout.Frequencies(name)
		for _, f := range freqs {
			ds, ok := datasets[f]
			if !ok {
				continue
			}
			first, end := ds.DateRange()
			table.Append([]string{
				name,
				f.Label(),
				first.Format(statusTimeLayout),
				end.Format(statusTimeLayout),
				ds.Stamp,
				strconv.Itoa(len(ds.Keys())),
				last,
			})
		}
	}

	table.Render()
	return nil
}

func describeRun(run *contracts.FactorRun) string {
	state := "ok"
	switch {
	case run.Skipped:
		state = "skipped"
	case !run.Success:
		state = "failed"
	}

	parts := []string{string(run.Operation), state, run.FinishedAt.Format(statusTimeLayout)}
	if run.Appended > 0 {
		parts = append(parts, fmt.Sprintf("+%d", run.Appended))
	}
	return strings.Join(parts, " ")
}
