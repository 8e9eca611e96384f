package control

import (
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/batchelor-project/batchelor/store"
	"github.com/batchelor-project/batchelor/transport/client"
)

func newWaitTaskCommand() *cobra.Command {
	var waitCancel int

	cmd := &cobra.Command{
		Use:   "wait-task <task-id>",
		Short: "Poll a task until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ns := clientFromFlags(cmd)
			return waitForTask(cmd, c, ns, args[0], waitCancel)
		},
	}

	cmd.Flags().IntVar(&waitCancel, "wait-cancel", 0, "cancel the task after this many interrupt signals (0 disables)")
	return cmd
}

// waitForTask polls GetTask every PollInterval until the task reaches a
// terminal state. While waiting, repeated interrupt signals (e.g. Ctrl-C)
// are counted; once waitCancel is reached (if non-zero), a CANCEL signal is
// sent to the head instead of the process simply exiting, mirroring the
// worker's own shutdown-signal escalation (spec §4.5/§4.7).
func waitForTask(cmd *cobra.Command, c *client.Client, ns, taskID string, waitCancel int) error {
	ctx := ctxFromCommand(cmd)

	interrupts := make(chan os.Signal, 1)
	if waitCancel > 0 {
		signal.Notify(interrupts, os.Interrupt)
		defer signal.Stop(interrupts)
	}

	received := 0
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		status, err := c.GetTask(ctx, ns, taskID)
		if err != nil {
			return err
		}
		if status != nil && store.State(status.State).IsTerminal() {
			printf("%s %s\n", status.State, status.Message)
			return nil
		}

		select {
		case <-interrupts:
			received++
			printf("interrupt %d/%d received\n", received, waitCancel)
			if received >= waitCancel {
				printf("cancelling task %s\n", taskID)
				return c.SendSignal(ctx, ns, taskID, "CANCEL")
			}
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
