package console

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-binding/framework/app"
)

func newServeCommand(opts *options) *cobra.Command {
	var (
		addr      string
		scopeFile string
	)

	cmd := &cobra.Command{
		Use:   "serve [view-file...]",
		Short: "Mount views and serve the inspector until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.boot()
			if err != nil {
				return err
			}
			cfg, err := a.Config()
			if err != nil {
				return err
			}
			cfg.Inspector.Enabled = true
			if addr != "" {
				cfg.Inspector.Addr = addr
			}

			views := make([]*app.View, 0, len(args))
			for _, path := range args {
				v, err := mountView(a, path)
				if err != nil {
					return err
				}
				views = append(views, v)
			}

			if scopeFile != "" {
				for _, v := range views {
					if err := applyScope(v, scopeFile); err != nil {
						return err
					}
				}
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return a.Run(ctx) })
			if scopeFile != "" {
				g.Go(func() error {
					return watchScope(ctx, a.Logger(), scopeFile, func() error {
						for _, v := range views {
							if err := applyScope(v, scopeFile); err != nil {
								return err
							}
						}
						return nil
					})
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "inspector listen address (default from config)")
	cmd.Flags().StringVarP(&scopeFile, "scope", "s", "", "YAML file applied to every view, watched for changes")
	return cmd
}
