package sim

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andydunstall/epto/pkg/checker"
	"github.com/andydunstall/epto/pkg/config"
	"github.com/andydunstall/epto/pkg/log"
	"github.com/andydunstall/epto/sim"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "run a simulated cluster",
		Long: `Run a simulated cluster.

Runs a cluster of nodes in a single process, connected by an in-memory
network. The nodes join using the configured topology, wait for their views
to fill, then generate and deliver events for the configured duration.

Once complete, outputs a report containing the number of events each node
delivered and whether the nodes delivered events in total order. Exits with
a non-zero status if total order was violated.

Examples:
  # Run 50 nodes for 30 seconds.
  epto sim

  # Run 100 nodes with a two-star topology, and crash the first centre
  # node after 10 seconds.
  epto sim --sim.nodes 100 --sim.topology two-star --sim.kill-center-after 10s

  # Run with a shorter round interval and write every delivered event to a
  # file.
  epto sim --broadcast.round-interval 100ms --delivery-log.path deliveries.jsonl
`,
	}

	conf := sim.Default()
	// Simulations generate events faster than a networked node by default.
	conf.Node.Generate.Interval = conf.Node.Broadcast.RoundInterval * 4
	logConf := log.Default()
	var loadConf config.LoadConfig
	var deliveryLogPath string

	conf.RegisterFlags(cmd.Flags())
	logConf.RegisterFlags(cmd.Flags())
	loadConf.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(
		&deliveryLogPath,
		"delivery-log.path",
		"",
		`
A file to write delivered events to, with one JSON object per line.`,
	)

	cmd.Run = func(_ *cobra.Command, _ []string) {
		if err := loadConf.Load(conf); err != nil {
			fmt.Printf("load config: %s\n", err.Error())
			os.Exit(1)
		}

		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}
		if err := logConf.Validate(); err != nil {
			fmt.Printf("invalid config: log: %s\n", err.Error())
			os.Exit(1)
		}

		logger, err := log.NewLogger(logConf)
		if err != nil {
			fmt.Printf("failed to setup logger: %s\n", err.Error())
			os.Exit(1)
		}

		report, err := run(conf, deliveryLogPath, logger)
		if err != nil {
			logger.Error("failed to run simulation", zap.Error(err))
			os.Exit(1)
		}

		b, _ := yaml.Marshal(report)
		fmt.Print(string(b))

		if !report.Check.OK() {
			os.Exit(1)
		}
	}

	return cmd
}

func run(conf *sim.Config, deliveryLogPath string, logger log.Logger) (*sim.Report, error) {
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	opts := []sim.Option{sim.WithLogger(logger)}
	if deliveryLogPath != "" {
		f, err := os.Create(deliveryLogPath)
		if err != nil {
			return nil, fmt.Errorf("create delivery log: %w", err)
		}
		defer f.Close()

		opts = append(opts, sim.WithDeliveryLog(checker.NewLog(f)))
	}

	return sim.New(conf, opts...).Run(ctx)
}
