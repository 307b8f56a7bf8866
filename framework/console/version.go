package console

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-binding/framework/app"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "go-binding %s (%s %s/%s)\n",
				app.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
