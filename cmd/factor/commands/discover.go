package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// discoverCmd lists registered factors that have no dataset yet
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "새 팩터 조회",
	Long: `등록되어 있지만 아직 데이터셋 폴더가 없는 팩터를 출력합니다.

Example:
  go run ./cmd/factor discover --config run.yaml`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	names, err := a.updater.DiscoverNewFactors()
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	if len(names) == 0 {
		fmt.Println("No new factors")
		return nil
	}
	fmt.Println("New factors:")
	for _, name := range names {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
