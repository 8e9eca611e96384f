package control

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/batchelor-project/batchelor/dispatch"
)

func newSendEventCommand() *cobra.Command {
	var (
		eventType string
		priority  int32
		condition string
		settings  []string
		metrics   []string
		wait      bool
		waitCancel int
	)

	cmd := &cobra.Command{
		Use:   "send-event",
		Short: "Submit a new task for an event type",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ns := clientFromFlags(cmd)

			settingKVs, err := parseKVs(settings)
			if err != nil {
				return err
			}
			metricKVs, err := parseKVs(metrics)
			if err != nil {
				return err
			}

			resp, err := c.RunTask(ctxFromCommand(cmd), ns, dispatch.RunRequest{
				EventType: eventType,
				Priority:  priority,
				Condition: condition,
				Settings:  settingKVs,
				Metrics:   metricKVs,
			})
			if err != nil {
				return err
			}
			if resp.TaskID == "" {
				printf("not scheduled: %s\n", resp.Message)
				return nil
			}
			printf("%s\n", resp.TaskID)

			if wait {
				return waitForTask(cmd, c, ns, resp.TaskID, waitCancel)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "event-type", "", "event type to dispatch (required)")
	cmd.Flags().Int32Var(&priority, "priority", 0, "base priority")
	cmd.Flags().StringVar(&condition, "condition", "", "condition expression gating assignment")
	cmd.Flags().StringArrayVar(&settings, "setting", nil, "key=value, repeatable")
	cmd.Flags().StringArrayVar(&metrics, "metric", nil, "key=value, repeatable")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the task reaches a terminal state")
	cmd.Flags().IntVar(&waitCancel, "wait-cancel", 0, "with --wait, cancel the task after this many interrupt signals (0 disables)")
	_ = cmd.MarkFlagRequired("event-type")

	return cmd
}

func parseKVs(raw []string) ([]dispatch.KV, error) {
	kvs := make([]dispatch.KV, 0, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid key=value pair: %q", entry)
		}
		kvs = append(kvs, dispatch.KV{Key: key, Value: value})
	}
	return kvs, nil
}
