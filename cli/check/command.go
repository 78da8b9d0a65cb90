package check

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/andydunstall/epto/pkg/checker"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Args:  cobra.MinimumNArgs(1),
		Short: "check delivery logs for total order",
		Long: `Check delivery logs for total order.

Reads the delivery logs written by 'epto node --delivery-log.path' or
'epto sim --delivery-log.path', then checks:
* No node delivered the same event twice
* Each node delivered events in timestamp order
* Every pair of nodes delivered their common events in the same order

Logs from multiple nodes may be in the same file or separate files.

Outputs a report and exits with a non-zero status if any check failed.

Examples:
  # Check the logs of three nodes.
  epto check node-1.jsonl node-2.jsonl node-3.jsonl
`,
	}

	var verbose bool
	cmd.Flags().BoolVar(
		&verbose,
		"verbose",
		false,
		`
Output the full report, including the violations, as YAML. Otherwise only a
summary and the first violation is output.`,
	)

	cmd.Run = func(_ *cobra.Command, args []string) {
		var records []checker.Record
		for _, path := range args {
			r, err := readLog(path)
			if err != nil {
				fmt.Printf("failed to read log: %s: %s\n", path, err.Error())
				os.Exit(1)
			}
			records = append(records, r...)
		}

		report := checker.Check(checker.GroupByNode(records))
		if verbose {
			b, _ := yaml.Marshal(report)
			fmt.Print(string(b))
		} else {
			fmt.Printf(
				"nodes: %d, common events: %d, violations: %d\n",
				len(report.Nodes), report.Common, len(report.Violations),
			)
			if !report.OK() {
				fmt.Println(report.Violations[0].String())
			}
		}

		if !report.OK() {
			os.Exit(1)
		}
	}

	return cmd
}

func readLog(path string) ([]checker.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return checker.ReadLog(f)
}
