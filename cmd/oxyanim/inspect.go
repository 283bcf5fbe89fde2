package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <model.yaml>",
		Short: "Print a model's bone hierarchy, clips and tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mdl, err := a.loadModel(args[0])
			if err != nil {
				return err
			}
			return printModel(cmd.OutOrStdout(), mdl)
		},
	}
}

// loadModel loads a single model file through a fresh loader.
func (a *app) loadModel(path string) (model.Model, error) {
	l := loader.NewLoader(loader.BackendTypeYAML, loader.WithLogger(a.logger))
	mdl, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	return mdl, nil
}

func printModel(out io.Writer, mdl model.Model) error {
	bones := mdl.Bones()
	fmt.Fprintf(out, "model %s (%s)\n", mdl.Name(), mdl.SourcePath())
	fmt.Fprintf(out, "bones: %d\n", len(bones))

	depth := make([]int, len(bones))
	for i, b := range bones {
		if b.ParentIndex >= 0 {
			depth[i] = depth[b.ParentIndex] + 1
		}
		t := b.Bind.Translation
		fmt.Fprintf(out, "  %s%s [%d] t=(%.3g, %.3g, %.3g)\n", strings.Repeat("  ", depth[i]), b.Name, i, t[0], t[1], t[2])
	}

	fmt.Fprintf(out, "clips: %d\n", mdl.AnimationCount())
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, clip := range mdl.Animations() {
		fmt.Fprintf(tw, "  %s\t%.3fs\t%d tracks\t\n", clip.Name(), clip.Duration(), clip.TrackCount())
		for _, tr := range clip.Tracks() {
			name := fmt.Sprintf("#%d", tr.BoneIndex())
			if b := tr.BoneIndex(); b < len(bones) {
				name = bones[b].Name
			}
			fmt.Fprintf(tw, "    %s\t%s\t%s\t%d keys\n", name, tr.Property(), tr.Interpolation(), tr.KeyframeCount())
		}
	}
	return tw.Flush()
}
