package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"jobload/internal/banner"
	"jobload/internal/dummy"
	"jobload/internal/harness"
	"jobload/internal/metrics"
	"jobload/internal/runner"
	"jobload/internal/storage"
	"jobload/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	cfgFile string

	// CLI Flags
	host       string
	users      int
	spawnRate  float64
	duration   int
	timeout    int
	runName    string
	partitions int
	workers    int
	csvPath    string
	outPrefix  string
	liveTUI    bool
	noHistory  bool
)

var rootCmd = &cobra.Command{
	Use:   "jobload",
	Short: "jobload - Partition Scaling Load Driver",
	Long: `
jobload drives job-submission traffic against a scheduler API to
measure how throughput and error rate scale with the Kafka partition
count provisioned behind it.

Each run appends one row to an append-only results CSV labeled with
the partition and worker counts of the environment under test. Those
two values label output only; keep them in sync with the provisioned
environment by hand.`,
	Run: func(cmd *cobra.Command, args []string) {
		if host == "" {
			cmd.Help()
			return
		}
		runLoadTest()
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jobload.yaml)")

	rootCmd.Flags().StringVarP(&host, "host", "H", "", "Target scheduler base URL (required)")
	rootCmd.Flags().IntVarP(&users, "users", "u", 20, "Concurrent simulated clients")
	rootCmd.Flags().Float64VarP(&spawnRate, "spawn-rate", "r", 5, "Clients started per second")
	rootCmd.Flags().IntVarP(&duration, "duration", "d", 180, "Run duration in seconds")
	rootCmd.Flags().IntVar(&timeout, "timeout", 30, "Request timeout in seconds")
	rootCmd.Flags().StringVarP(&runName, "run-name", "n", "partition-scaling", "Run label used in payloads and file names")
	rootCmd.Flags().IntVarP(&partitions, "partitions", "p", 16, "Kafka partition count of the environment (labels output only)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 4, "Worker count of the environment (labels output only)")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "Results CSV path (default <run-name>_results.csv)")
	rootCmd.Flags().StringVarP(&outPrefix, "out", "o", "", "Per-request report prefix (writes <out>.csv and <out>_summary.json)")
	rootCmd.Flags().BoolVar(&liveTUI, "tui", false, "Show the live dashboard instead of the progress line")
	rootCmd.Flags().BoolVar(&noHistory, "no-history", false, "Skip recording this run in the history store")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".jobload")
		}
	}
	viper.SetEnvPrefix("JOBLOAD")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func runLoadTest() {
	cfg := runner.Config{
		Host:       host,
		NumUsers:   users,
		SpawnRate:  spawnRate,
		DurationS:  duration,
		TimeoutSec: timeout,
		RunName:    runName,
	}

	m := metrics.NewRunMetrics(partitions, workers)
	updates := make(runner.StatsUpdateChan, 100)
	run := runner.NewRunner(cfg, m, updates)

	if csvPath == "" {
		csvPath = runName + "_results.csv"
	}

	historyPath := ""
	if !noHistory {
		if p, err := storage.DefaultPath(); err == nil {
			historyPath = p
		}
	}

	log, _ := zap.NewProduction()
	defer log.Sync()

	h := harness.New(run, harness.Options{
		CSVPath:     csvPath,
		OutPrefix:   outPrefix,
		HistoryPath: historyPath,
	}, log)

	var err error
	if liveTUI {
		err = runWithTUI(h, run)
	} else {
		err = h.Start(context.Background())
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runWithTUI(h *harness.Harness, run *runner.Runner) error {
	h.OnStart()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		run.Run(ctx)
		close(done)
	}()

	totalDur := time.Duration(run.Cfg.DurationS) * time.Second
	model := tui.NewModel(run, totalDur)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return err
	}

	// Stop spawning new iterations if the TUI quit early and let the
	// in-flight requests finish.
	cancel()
	<-done

	return h.OnStop()
}

// --- Dummy Subcommand ---
var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run a local stub of the scheduler API",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		errorRate, _ := cmd.Flags().GetFloat64("error-rate")

		log, _ := zap.NewProduction()
		defer log.Sync()

		srv := dummy.NewServer(dummy.ServerConfig{
			Port:      port,
			RateLimit: rateLimit,
			ErrorRate: errorRate,
		}, log)
		srv.Start()
		select {}
	},
}

// --- History Subcommand ---
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs recorded in the history store",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := storage.DefaultPath()
		if err != nil {
			return err
		}
		store, err := storage.NewStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		fmt.Printf("%-36s %-20s %-22s %5s %5s %9s %8s %8s\n",
			"ID", "WHEN", "RUN", "PART", "WORK", "SUBMITTED", "ERR%", "JOBS/S")
		for _, rec := range records {
			fmt.Printf("%-36s %-20s %-22s %5d %5d %9d %8.2f %8.2f\n",
				rec.ID,
				rec.Timestamp.Format("2006-01-02 15:04:05"),
				rec.RunName,
				rec.Row.PartitionCount,
				rec.Row.WorkerCount,
				rec.Row.TotalSubmitted,
				rec.Row.ErrorRatePct,
				rec.Row.Throughput,
			)
		}
		return nil
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run the stub on")
	dummyCmd.Flags().Int("rate-limit", 100, "Requests per minute per client before 429")
	dummyCmd.Flags().Float64("error-rate", 0, "Probability of an injected 503")
}
