// painter - BSP painter's algorithm renderer
// Draws scenes of 3D models without a depth buffer: every frame the visible
// polygons are sorted back to front with a BSP tree and painted in order.
//
// Usage:
//
//	painter render [scene.toml|model.glb] -o out.svg
//	painter view   [scene.toml|model.glb]
//
// Without an argument a built-in scene of three cubes is used.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/taigrr/painter/pkg/scene"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// options shared by every command.
type rootOptions struct {
	verbose bool
	split   string
	root    string
	order   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "painter",
		Short: "Render 3D scenes with a BSP painter's algorithm",
		Long: `painter sorts the polygons of a 3D scene back to front with a BSP tree,
splitting the ones that overlap, and paints them in that order. Output goes
to SVG, PNG or straight to the terminal.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log frame statistics and polygon order")
	flags.StringVar(&opts.split, "split", "", `split mode, "plane" or "footprint" (overrides the scene file)`)
	flags.StringVar(&opts.root, "root", "", `root policy, "first" or "nearest" (overrides the scene file)`)
	flags.StringVar(&opts.order, "traversal", "", `traversal, "eye" or "view" (overrides the scene file)`)

	cmd.AddCommand(newRenderCmd(opts), newViewCmd(opts))
	return cmd
}

func (o *rootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the scene named by args. A .toml file is a scene
// description, a .glb or .gltf file becomes a one-model scene and no argument
// gives the demo scene. Scene files may also be YAML (.yaml, .yml). The
// returned directory resolves relative model paths.
func (o *rootOptions) loadConfig(args []string) (scene.Config, string, error) {
	var (
		cfg scene.Config
		dir = "."
		err error
	)

	switch {
	case len(args) == 0:
		cfg = demoConfig()
	case isModelFile(args[0]):
		path, err := filepath.Abs(args[0])
		if err != nil {
			return scene.Config{}, "", fmt.Errorf("resolve %s: %w", args[0], err)
		}
		cfg = scene.Default()
		cfg.Render.Lighting = true
		cfg.Camera.Position = [3]float64{0, 0.5, -2.5}
		cfg.Camera.Direction = [3]float64{0, -0.2, 1}
		cfg.Models = []scene.ModelConfig{{
			ID:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Kind: "gltf",
			Path: path,
		}}
	default:
		if cfg, err = scene.Load(args[0]); err != nil {
			return scene.Config{}, "", err
		}
		dir = filepath.Dir(args[0])
	}

	if o.split != "" {
		cfg.Render.Split = o.split
	}
	if o.root != "" {
		cfg.Render.Root = o.root
	}
	if o.order != "" {
		cfg.Render.Traversal = o.order
	}
	return cfg, dir, cfg.Validate()
}

func isModelFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		return true
	}
	return false
}

// demoConfig is three overlapping cubes and a slanted panel cutting
// through them.
func demoConfig() scene.Config {
	cfg := scene.Default()
	cfg.Render.Lighting = true
	cfg.Models = []scene.ModelConfig{
		{ID: "left", Kind: "cube", Size: [3]float64{2, 2, 2}, Position: [3]float64{-1.2, 0, 0}, Axis: [3]float64{0, 1, 0}, Angle: 30},
		{ID: "right", Kind: "cube", Size: [3]float64{1.5, 3, 1.5}, Position: [3]float64{1.3, 0.3, 1}, Axis: [3]float64{1, 1, 0}, Angle: 20},
		{ID: "front", Kind: "cube", Size: [3]float64{1, 1, 1}, Position: [3]float64{0.2, -1, -2}, Axis: [3]float64{0, 0, 1}, Angle: 45},
		{ID: "slab", Kind: "cube", Size: [3]float64{5, 0.2, 3}, Position: [3]float64{0, 0.2, 0.5}, Axis: [3]float64{0, 0, 1}, Angle: 15, Color: "#d0d0d0"},
	}
	return cfg
}
