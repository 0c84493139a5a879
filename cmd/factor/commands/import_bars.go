package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/feed"
	"github.com/wonny/factorpool/pkg/database"
)

// importBarsCmd copies CSV bar files into the PostgreSQL bar table
var importBarsCmd = &cobra.Command{
	Use:   "import-bars [symbol...]",
	Short: "CSV 바 데이터를 PostgreSQL로 적재",
	Long: `BAR_DATA_ROOT/<market>/<symbol>.csv 파일을 읽어 BAR_TABLE에 upsert 합니다.
테이블이 없으면 생성합니다.

심볼을 지정하지 않으면 run config의 종목과 벤치마크를 적재합니다.

Example:
  go run ./cmd/factor import-bars --config run.yaml
  go run ./cmd/factor import-bars 600000.XSHG 000001.XSHE --config run.yaml`,
	RunE: runImportBars,
}

func init() {
	rootCmd.AddCommand(importBarsCmd)
}

func runImportBars(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadBase()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required to import bars")
	}

	runCfg, _, err := loadRunConfig(cfg)
	if err != nil {
		return err
	}
	settings, err := runCfg.Settings()
	if err != nil {
		return fmt.Errorf("run config settings: %w", err)
	}
	loc, err := runCfg.Location()
	if err != nil {
		return fmt.Errorf("run config timezone: %w", err)
	}

	symbols := args
	if len(symbols) == 0 {
		symbols = append(symbols, settings.Instruments...)
		if b := settings.BenchmarkSymbol(); b != "" {
			symbols = append(symbols, b)
		}
	}
	market := settings.Market
	if market == "" {
		market = contracts.MarketStock
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureBarTable(ctx, cfg.Bars.Table); err != nil {
		return err
	}

	csvSource := feed.NewCSVSource(cfg.Bars.DataRoot, loc)
	pgSource := feed.NewPostgresSource(db.Pool, cfg.Bars.Table)

	var errs []error
	total := 0
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		bars, err := csvSource.Bars(market, sym)
		if err != nil {
			log.WithError(err).WithField("symbol", sym).Warn("Failed to read bars")
			errs = append(errs, fmt.Errorf("%s: %w", sym, err))
			continue
		}

		n, err := pgSource.Save(ctx, market, sym, bars)
		total += n
		if err != nil {
			log.WithError(err).WithField("symbol", sym).Error("Failed to save bars")
			errs = append(errs, err)
			continue
		}

		log.WithFields(map[string]interface{}{
			"symbol": sym,
			"bars":   n,
		}).Info("Bars imported")
	}

	fmt.Printf("Imported %d bars for %d symbols (%d failed)\n", total, len(symbols), len(errs))
	return errors.Join(errs...)
}
