package control

import "github.com/spf13/cobra"

func newCancelTaskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-task <task-id>",
		Short: "Send a CANCEL signal to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ns := clientFromFlags(cmd)
			return c.SendSignal(ctxFromCommand(cmd), ns, args[0], "CANCEL")
		},
	}
}

func newSignalTaskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signal-task <task-id> <signal>",
		Short: "Send a named signal to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ns := clientFromFlags(cmd)
			return c.SendSignal(ctxFromCommand(cmd), ns, args[0], args[1])
		},
	}
}
