package status

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/andydunstall/epto/server/status/client"
	"github.com/andydunstall/epto/server/status/config"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "inspect node status",
		Long: `Inspect node status.

Each node exposes a status API to inspect the state of the node, this can be
used to answer questions such as:
* Which peers are in the nodes view?
* Is the node waiting for a shuffle reply?
* How many events are waiting to be delivered?

See 'status --help' for the available commands.

Examples:
  # Inspect the nodes view.
  epto status view

  # Inspect the nodes ordering state.
  epto status ordering --server.url http://10.26.104.14:8002
`,
	}

	var conf config.Config
	conf.RegisterFlags(cmd.PersistentFlags())

	c := client.NewClient(nil)

	cmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if err := conf.Validate(); err != nil {
			fmt.Printf("config: %s\n", err.Error())
			os.Exit(1)
		}

		url, _ := url.Parse(conf.Server.URL)
		c.SetURL(url)
	}

	cmd.AddCommand(newViewCommand(c))
	cmd.AddCommand(newOrderingCommand(c))

	return cmd
}
