package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taigrr/painter/pkg/render"
)

type renderOptions struct {
	*rootOptions
	out     string
	width   int
	height  int
	zbuffer bool
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "render [scene.toml|model.glb]",
		Short: "Render one frame to an SVG or PNG file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.out, "out", "o", "out.svg", "output file, .svg or .png (- writes SVG to stdout)")
	flags.IntVar(&opts.width, "width", 0, "image width (overrides the scene file)")
	flags.IntVar(&opts.height, "height", 0, "image height (overrides the scene file)")
	flags.BoolVar(&opts.zbuffer, "zbuffer", false, "draw with the depth-buffer rasterizer instead (PNG only)")
	return cmd
}

func (o *renderOptions) run(args []string) error {
	cfg, dir, err := o.loadConfig(args)
	if err != nil {
		return err
	}
	if o.width > 0 {
		cfg.Render.Width = o.width
	}
	if o.height > 0 {
		cfg.Render.Height = o.height
	}

	log := o.logger()
	s, err := cfg.Build(dir, log)
	if err != nil {
		return err
	}
	w, h := cfg.Render.Width, cfg.Render.Height

	ext := strings.ToLower(filepath.Ext(o.out))
	switch {
	case o.out == "-" || ext == ".svg":
		if o.zbuffer {
			return fmt.Errorf("--zbuffer needs a .png output")
		}
		svg := render.NewSVG(w, h)
		drawn := s.Render(svg)
		if err := writeSVG(svg, o.out); err != nil {
			return err
		}
		log.Info("rendered", "out", o.out, "polygons", drawn, "splits", s.Stats().Splits)

	case ext == ".png":
		fb := render.NewFramebuffer(w, h)
		if o.zbuffer {
			st := s.RenderDepth(fb)
			log.Info("rasterized", "out", o.out, "triangles", st.Triangles, "pixels", st.Pixels)
		} else {
			drawn := s.Render(fb)
			log.Info("rendered", "out", o.out, "polygons", drawn, "splits", s.Stats().Splits)
		}
		if err := fb.SavePNG(o.out); err != nil {
			return fmt.Errorf("save png: %w", err)
		}

	default:
		return fmt.Errorf("unsupported output format %q (use .svg or .png)", ext)
	}
	return nil
}

func writeSVG(svg *render.SVG, path string) error {
	if path == "-" {
		_, err := svg.WriteTo(os.Stdout)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := svg.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
