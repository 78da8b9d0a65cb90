package status

import (
	"context"
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/andydunstall/epto/server/status/client"
)

func newViewCommand(c *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "inspect the nodes view",
		Long: `Inspect the nodes view.

Queries the node for the peers in its membership view, with the age of each
entry, and the outstanding shuffle if any.

Examples:
  epto status view
`,
	}

	cmd.Run = func(cmd *cobra.Command, _ []string) {
		showView(cmd.Context(), c)
	}

	return cmd
}

func showView(ctx context.Context, c *client.Client) {
	view, err := client.NewNode(c).View(ctx)
	if err != nil {
		fmt.Printf("failed to get view: %s\n", err.Error())
		os.Exit(1)
	}

	b, _ := yaml.Marshal(view)
	fmt.Print(string(b))
}

func newOrderingCommand(c *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ordering",
		Short: "inspect the nodes ordering state",
		Long: `Inspect the nodes ordering state.

Queries the node for its logical clock, the number of events waiting to be
relayed and delivered, and the timestamp of the last delivered event.

Examples:
  epto status ordering
`,
	}

	cmd.Run = func(cmd *cobra.Command, _ []string) {
		showOrdering(cmd.Context(), c)
	}

	return cmd
}

func showOrdering(ctx context.Context, c *client.Client) {
	ordering, err := client.NewNode(c).Ordering(ctx)
	if err != nil {
		fmt.Printf("failed to get ordering: %s\n", err.Error())
		os.Exit(1)
	}

	b, _ := yaml.Marshal(ordering)
	fmt.Print(string(b))
}
