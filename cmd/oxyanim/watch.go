package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Load every model in the asset directories and hot-reload them on change",
		Long: `watch loads every .yaml/.yml model in the given directories (default: assets.dirs)
and reloads a model whenever its file changes. A failed reload keeps the last good
model. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = a.cfg.Assets.Dirs
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd.OutOrStdout(), dirs)
		},
	}
}

func (a *app) watch(ctx context.Context, out io.Writer, dirs []string) error {
	l := loader.NewLoader(loader.BackendTypeYAML, loader.WithLogger(a.logger))

	// Reload callbacks run on timer goroutines.
	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	for _, dir := range dirs {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			paths, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return err
			}
			for _, path := range paths {
				if mdl, err := l.Load(path); err != nil {
					printf("skip %s: %v\n", path, err)
				} else {
					printf("loaded %s\n", summarize(mdl))
				}
			}
		}
	}

	w, err := loader.NewWatcher(l, a.cfg.Assets.Debounce, func(path string, mdl model.Model, err error) {
		if err != nil {
			printf("reload failed %s: %v\n", path, err)
			return
		}
		printf("reloaded %s\n", summarize(mdl))
	}, dirs...)
	if err != nil {
		return fmt.Errorf("failed to watch %v: %w", dirs, err)
	}
	defer w.Close()

	printf("watching %d director%s\n", len(dirs), plural(len(dirs), "y", "ies"))
	<-ctx.Done()
	return nil
}

func summarize(mdl model.Model) string {
	return fmt.Sprintf("%s: %d bones, %d clips", mdl.Name(), mdl.BoneCount(), mdl.AnimationCount())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
