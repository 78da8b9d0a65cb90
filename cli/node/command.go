package node

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-sockaddr"
	rungroup "github.com/oklog/run"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andydunstall/epto/pkg/config"
	"github.com/andydunstall/epto/pkg/log"
	"github.com/andydunstall/epto/server"
	serverconfig "github.com/andydunstall/epto/server/config"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "start a node",
		Long: `Start a node.

The node joins the cluster, then relays, orders and delivers events broadcast
by any node in the cluster. By default the node generates an event with a
random action every '--generate.interval'.

Use '--cluster.join' to configure the address of an existing member of the
cluster to join. The rest of the cluster is discovered by exchanging views
with known peers.

Examples:
  # Start a node.
  epto node

  # Start a node, listening for other nodes on :7003 and admin connections
  # on :7002.
  epto node --transport.bind-addr :7003 --admin.bind-addr :7002

  # Start a node and join an existing cluster.
  epto node --cluster.join 10.26.104.14:8003

  # Start a node and log delivered events to check for total order.
  epto node --delivery-log.path deliveries.jsonl
`,
	}

	conf := serverconfig.Default()
	var loadConf config.LoadConfig

	// Register flags and set default values.
	conf.RegisterFlags(cmd.Flags())
	loadConf.RegisterFlags(cmd.Flags())

	cmd.Run = func(_ *cobra.Command, _ []string) {
		if err := loadConf.Load(conf); err != nil {
			fmt.Printf("load config: %s\n", err.Error())
			os.Exit(1)
		}

		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		logger, err := log.NewLogger(&conf.Log)
		if err != nil {
			fmt.Printf("failed to setup logger: %s\n", err.Error())
			os.Exit(1)
		}

		conf.GenerateNodeID()

		if conf.Transport.AdvertiseAddr == "" {
			advertiseAddr, err := advertiseAddrFromBindAddr(conf.Transport.BindAddr)
			if err != nil {
				logger.Error("invalid configuration", zap.Error(err))
				os.Exit(1)
			}
			conf.Transport.AdvertiseAddr = advertiseAddr
		}

		if err := run(conf, logger); err != nil {
			logger.Error("failed to run node", zap.Error(err))
			os.Exit(1)
		}
	}

	return cmd
}

func run(conf *serverconfig.Config, logger log.Logger) error {
	logger.Info("starting epto node", zap.Any("conf", conf))

	s, err := server.NewServer(conf, logger)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	var group rungroup.Group

	// Termination handler.
	signalCtx, signalCancel := context.WithCancel(context.Background())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	group.Add(func() error {
		select {
		case sig := <-signalCh:
			logger.Info(
				"received shutdown signal",
				zap.String("signal", sig.String()),
			)
			return nil
		case <-signalCtx.Done():
			return nil
		}
	}, func(error) {
		signalCancel()
	})

	// Node.
	runCtx, runCancel := context.WithCancel(context.Background())
	group.Add(func() error {
		return s.Run(runCtx)
	}, func(error) {
		runCancel()
	})

	if err := group.Run(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

func advertiseAddrFromBindAddr(bindAddr string) (string, error) {
	if strings.HasPrefix(bindAddr, ":") {
		bindAddr = "0.0.0.0" + bindAddr
	}

	host, port, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return "", fmt.Errorf("invalid bind addr: %s: %w", bindAddr, err)
	}

	if host == "0.0.0.0" {
		ip, err := sockaddr.GetPrivateIP()
		if err != nil {
			return "", fmt.Errorf("get interface addr: %w", err)
		}
		if ip == "" {
			return "", fmt.Errorf("no private ip found")
		}
		return ip + ":" + port, nil
	}
	return bindAddr, nil
}
