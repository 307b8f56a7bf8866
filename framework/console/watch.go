package console

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/km-arc/go-binding/framework/app"
	"github.com/km-arc/go-binding/framework/logging"
)

// debounceWindow collapses the burst of events editors produce on save.
const debounceWindow = 50 * time.Millisecond

func newWatchCommand(opts *options) *cobra.Command {
	var scopeFile string

	cmd := &cobra.Command{
		Use:   "watch <view-file>",
		Short: "Mount a view and re-render it whenever the scope file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.boot()
			if err != nil {
				return err
			}
			v, err := mountView(a, args[0])
			if err != nil {
				return err
			}
			defer v.Unmount()

			out := cmd.OutOrStdout()
			if scopeFile == "" {
				return render(out, v)
			}
			if err := applyScope(v, scopeFile); err != nil {
				return err
			}
			if err := render(out, v); err != nil {
				return err
			}
			return watchScope(cmd.Context(), a.Logger(), scopeFile, func() error {
				if err := applyScope(v, scopeFile); err != nil {
					return err
				}
				return render(out, v)
			})
		},
	}

	cmd.Flags().StringVarP(&scopeFile, "scope", "s", "", "YAML file applied to the view-model, watched for changes")
	return cmd
}

func mountView(a *app.Application, path string) (*app.View, error) {
	def, err := app.LoadView(path)
	if err != nil {
		return nil, err
	}
	return a.Mount(def)
}

func applyScope(v *app.View, path string) error {
	values, err := app.LoadScope(path)
	if err != nil {
		return err
	}
	v.Apply(values)
	return nil
}

func render(w io.Writer, v *app.View) error {
	html, err := v.Render()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, html)
	return err
}

// watchScope calls onChange after path is written or recreated, until ctx
// is done. The directory is watched so editors that save by rename are
// seen too. Errors from onChange are logged, not returned.
func watchScope(ctx context.Context, logger *logging.Logger, path string, onChange func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	logger.Debug("console: watching", "path", target)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fire = time.After(debounceWindow)
		case <-fire:
			fire = nil
			if err := onChange(); err != nil {
				logger.Warn("console: reload failed", "path", target, "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("console: watcher error", "error", err)
		}
	}
}
