package control

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newShowTaskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show-task <task-id>",
		Short: "Print one task's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ns := clientFromFlags(cmd)
			status, err := c.GetTask(ctxFromCommand(cmd), ns, args[0])
			if err != nil {
				return err
			}
			if status == nil {
				return fmt.Errorf("task %q not found", args[0])
			}
			return printJSON(status)
		},
	}
}

func newShowTasksCommand() *cobra.Command {
	var state, after, before string

	cmd := &cobra.Command{
		Use:   "show-tasks",
		Short: "List tasks in the namespace, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ns := clientFromFlags(cmd)

			values := url.Values{}
			if state != "" {
				values.Set("state", state)
			}
			if after != "" {
				values.Set("nafter", after)
			}
			if before != "" {
				values.Set("nbefore", before)
			}

			tasks, err := c.GetTasks(ctxFromCommand(cmd), ns, values.Encode())
			if err != nil {
				return err
			}
			return printJSON(tasks)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by state (queued, running, done, signaled, zombie)")
	cmd.Flags().StringVar(&after, "nafter", "", "only tasks created at or before this unix timestamp")
	cmd.Flags().StringVar(&before, "nbefore", "", "only tasks created at or after this unix timestamp")
	return cmd
}

func newShowEventTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show-event-types",
		Short: "List event types with a live worker advertisement",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ns := clientFromFlags(cmd)
			eventTypes, err := c.GetEventTypes(ctxFromCommand(cmd), ns)
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(eventTypes, "\n"))
			return nil
		},
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
