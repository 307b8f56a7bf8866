// Package console is the go-binding command line.
//
//	go-binding eval expr.yaml --scope scope.yaml
//	go-binding watch view.yaml --scope scope.yaml
//	go-binding serve view.yaml --addr 127.0.0.1:7070
package console

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-binding/framework/app"
)

// options are the persistent flags shared by every command.
type options struct {
	configFile string
	envFiles   []string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "go-binding",
		Short: "Evaluate binding expressions and run bound views",
		Long: `go-binding evaluates serialized binding expressions, mounts views
described in YAML onto an in-memory DOM and serves the inspector API.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "go-binding.yaml", "configuration file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		newEvalCommand(opts),
		newWatchCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// boot creates and boots the application for a command.
func (o *options) boot() (*app.Application, error) {
	a, err := app.New(app.Options{ConfigFile: o.configFile, EnvFiles: o.envFiles})
	if err != nil {
		return nil, err
	}
	if err := a.Boot(); err != nil {
		return nil, err
	}
	return a, nil
}
