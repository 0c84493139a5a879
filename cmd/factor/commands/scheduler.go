package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorpool/internal/scheduler"
	"github.com/wonny/factorpool/internal/scheduler/jobs"
	"github.com/wonny/factorpool/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `팩터 작업 스케줄러를 시작하거나 작업을 즉시 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/factor scheduler start --config run.yaml
  go run ./cmd/factor scheduler list
  go run ./cmd/factor scheduler run factor_pool_update`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- factor_write_new: 새 팩터 계산 ($SCHEDULE_NEW_FACTORS)
- factor_pool_update: 전체 팩터 풀 업데이트 ($SCHEDULE_POOL_UPDATE)

Redis가 활성화되어 있으면 작업마다 분산 락을 잡습니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

// schedulerLockTTL bounds how long a crashed process can block other runners
const schedulerLockTTL = 6 * time.Hour

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Factor Pool Scheduler ===")

	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-cmd.Context().Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Println("Registered jobs:")
	stats := sched.Stats()
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s (%s)\n", jobName, stats[jobName].Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	result, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	switch {
	case result.Skipped:
		fmt.Println("Job skipped (lock held by another process)")
	case result.Success:
		fmt.Printf("✅ Job finished in %s (attempts: %d)\n", result.Duration.Round(time.Millisecond), result.Attempts)
	default:
		return fmt.Errorf("job %s failed after %d attempts: %s", jobName, result.Attempts, result.Error)
	}
	return nil
}

func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, error) {
	// 1. Wire orchestrator
	a, err := initApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	// 2. Create scheduler
	opts := []scheduler.Option{
		scheduler.WithRetries(a.cfg.Scheduler.MaxRetries, a.cfg.Scheduler.RetryDelay),
	}
	if a.redis.Enabled() {
		host, _ := os.Hostname()
		owner := fmt.Sprintf("%s:%d", host, os.Getpid())
		opts = append(opts, scheduler.WithLocker(redis.NewLock(a.redis, "scheduler", owner, schedulerLockTTL)))
	}
	sched := scheduler.New(a.log, opts...)

	// 3. Register jobs
	registered := []scheduler.Job{
		jobs.NewNewFactorJob(a.updater, a.cfg.Scheduler.NewFactorSchedule, a.flusher(), a.cfg.MetricsTextfile, a.log),
		jobs.NewPoolUpdateJob(a.updater, a.cfg.Scheduler.PoolUpdateSchedule, a.lookback, a.flusher(), a.cfg.MetricsTextfile, a.log),
	}
	for _, job := range registered {
		if err := sched.AddJob(job); err != nil {
			a.close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}
