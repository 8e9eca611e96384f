// Package control implements the batchelorctl subcommands described in
// spec §4.7: thin wrappers over transport/client that submit events, poll
// or cancel them, and inspect the head's task/event-type state.
package control

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/batchelor-project/batchelor/transport/client"
)

// PollInterval is how often --wait polls the head for task completion.
const PollInterval = 5 * time.Second

// NewRootCommand builds the batchelorctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "batchelorctl",
		Short: "Control CLI for a batchelor dispatch head",
	}

	root.PersistentFlags().String("head", "http://localhost:28082", "comma-separated list of dispatch head endpoints")
	root.PersistentFlags().String("namespace", "default", "namespace to operate in")
	root.PersistentFlags().String("token", "", "bearer token for authentication")
	root.PersistentFlags().String("basic-user", "", "basic auth username")
	root.PersistentFlags().String("basic-pass", "", "basic auth password")

	for _, name := range []string{"head", "namespace", "token", "basic-user", "basic-pass"} {
		_ = viper.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}

	root.AddCommand(
		newSendEventCommand(),
		newWaitTaskCommand(),
		newCancelTaskCommand(),
		newSignalTaskCommand(),
		newShowTaskCommand(),
		newShowTasksCommand(),
		newShowEventTypesCommand(),
	)
	return root
}

func clientFromFlags(cmd *cobra.Command) (*client.Client, string) {
	endpoints := strings.Split(viper.GetString("head"), ",")
	opts := []client.Option{}
	if token := viper.GetString("token"); token != "" {
		opts = append(opts, client.WithBearerToken(token))
	}
	if user := viper.GetString("basic-user"); user != "" {
		opts = append(opts, client.WithBasicAuth(user, viper.GetString("basic-pass")))
	}
	return client.New(endpoints, opts...), viper.GetString("namespace")
}

// ctxFromCommand returns cmd.Context(), populated by Execute(ctx) in main.
func ctxFromCommand(cmd *cobra.Command) context.Context {
	return cmd.Context()
}

func printf(format string, args ...any) {
	fmt.Printf(format, args...)
}
