package cli

import (
	"github.com/spf13/cobra"

	"github.com/andydunstall/epto/cli/check"
	"github.com/andydunstall/epto/cli/node"
	"github.com/andydunstall/epto/cli/sim"
	"github.com/andydunstall/epto/cli/status"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "epto [command] (flags)",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Long: `EpTO is an epidemic total order broadcast.

Each node maintains a partial view of the cluster using the Cyclon peer
sampling protocol, then relays events to random peers from its view in
periodic rounds. Once an event has been relayed for enough rounds, every node
delivers it in the same order, ordered by logical timestamp.

Start a node with:

  $ epto node

Join an existing cluster with:

  $ epto node --cluster.join 10.26.104.14:8003

Run a cluster of nodes in a single process and check they deliver events in
total order with:

  $ epto sim --sim.nodes 50

You can also inspect the status of a node using:

  $ epto status
`,
	}

	cmd.AddCommand(node.NewCommand())
	cmd.AddCommand(sim.NewCommand())
	cmd.AddCommand(status.NewCommand())
	cmd.AddCommand(check.NewCommand())

	return cmd
}

func init() {
	cobra.EnableCommandSorting = false
}
