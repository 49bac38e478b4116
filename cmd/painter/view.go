package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/taigrr/painter/pkg/bsp"
	"github.com/taigrr/painter/pkg/math3d"
	"github.com/taigrr/painter/pkg/render"
	"github.com/taigrr/painter/pkg/scene"
)

// Controls of the view command.
const controls = `Controls:
  Mouse drag  - Orbit the camera
  Click       - Show the polygon under the cursor
  Scroll, +/- - Zoom in/out
  W/S/A/D     - Orbit up/down/left/right (arrow keys work too)
  Space       - Random spin
  R           - Reset view
  X           - Toggle wireframe (shows BSP splits)
  L           - Toggle lighting
  C           - Toggle frustum culling
  N           - Toggle near-plane clipping
  P           - Switch split mode
  (--watch reloads the scene file on save)
  Esc, Q      - Quit`

type viewOptions struct {
	*rootOptions
	fps   int
	watch bool
}

func newViewCmd(root *rootOptions) *cobra.Command {
	opts := &viewOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "view [scene.toml|model.glb]",
		Short: "Show the scene in the terminal and orbit around it",
		Long:  "Show the scene in the terminal and orbit around it.\n\n" + controls,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), args)
		},
	}
	cmd.Flags().IntVar(&opts.fps, "fps", 60, "target frames per second")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the scene file when it changes")
	return cmd
}

// viewer is the state owned by the render loop. Input handling never touches
// it directly; it sends commands instead.
type viewer struct {
	scene     *scene.Scene
	orbit     *scene.Orbit
	fb        *render.Framebuffer
	cols      int
	rows      int
	wireframe bool
	status    string
	quit      bool
}

// command mutates the viewer on the render loop goroutine.
type command func(v *viewer)

func (o *viewOptions) run(ctx context.Context, args []string) error {
	if o.fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", o.fps)
	}
	cfg, dir, err := o.loadConfig(args)
	if err != nil {
		return err
	}

	// log lines on stderr tear the alternate screen unless redirected
	log := o.logger()
	if !o.verbose {
		log = slog.New(slog.DiscardHandler)
	}
	s, err := cfg.Build(dir, log)
	if err != nil {
		return err
	}

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)
	fmt.Fprint(os.Stdout, "\x1b[?1002h") // button-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // SGR extended mouse mode

	defer func() {
		fmt.Fprint(os.Stdout, "\x1b[?1002l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	start := s.Camera.Position()
	target := s.Models[0].Position
	for _, m := range s.Models[1:] {
		target = target.Add(m.Position)
	}
	target = target.Scale(1 / float64(len(s.Models)))

	v := &viewer{
		scene: s,
		orbit: scene.NewOrbit(target, start.Distance(target), o.fps),
	}
	v.resize(width, height)
	v.orbit.Apply(s.Camera)

	cmds := make(chan command, 64)
	go readEvents(ctx, term, cmds)

	if o.watch && len(args) == 1 {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		defer w.Close()
		// editors replace files, so watch the directory
		if err := w.Add(filepath.Dir(args[0])); err != nil {
			return fmt.Errorf("watch %s: %w", args[0], err)
		}
		go o.watchScene(ctx, w, args, log, cmds)
	}

	frame := time.Second / time.Duration(o.fps)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-cmds:
			cmd(v)
			if v.quit {
				return nil
			}
		case <-ticker.C:
			if v.orbit.Moving() {
				v.orbit.Update()
				v.orbit.Apply(s.Camera)
			}
			if !s.Dirty() {
				continue
			}
			if err := v.draw(term); err != nil {
				return err
			}
		}
	}
}

// resize matches the framebuffer to a terminal of cols x rows cells. The last
// row is kept for the status line; every other row shows two pixels.
func (v *viewer) resize(cols, rows int) {
	v.cols, v.rows = cols, rows
	w, h := max(cols, 1), max(rows-1, 1)*2
	if v.fb == nil {
		v.fb = render.NewFramebuffer(w, h)
	} else {
		v.fb.Resize(w, h)
	}
	v.scene.Camera.SetViewport(w, h)
	v.scene.Invalidate()
}

func (v *viewer) draw(term *uv.Terminal) error {
	cols, rows := v.cols, v.rows
	var drawn int
	if v.wireframe {
		wf := render.NewWireframe(v.fb)
		drawn = v.scene.Render(wf)
		wf.DrawAxes(v.scene.Camera, 1)
	} else {
		drawn = v.scene.Render(v.fb)
	}

	v.fb.Draw(term, uv.Rect(0, 0, cols, rows-1))

	st := v.scene.Stats()
	line := fmt.Sprintf(" %d polygons  %d splits  depth %d  split=%s  %s",
		drawn, st.Splits, st.Depth, v.scene.Options.Split, v.status)
	for x := range cols {
		cell := &uv.Cell{Content: " ", Width: 1}
		if x < len(line) {
			cell.Content = string(line[x])
		}
		term.SetCell(x, rows-1, cell)
	}
	return term.Display()
}

// swap replaces the scene after a reload. The camera pose and the terminal
// size carry over.
func (v *viewer) swap(s *scene.Scene) {
	v.scene = s
	v.resize(v.cols, v.rows)
	v.orbit.Apply(s.Camera)
	v.status = "reloaded"
}

// watchScene rebuilds the scene whenever the watched file is written and
// hands the result to the render loop.
func (o *viewOptions) watchScene(ctx context.Context, w *fsnotify.Watcher, args []string, log *slog.Logger, cmds chan<- command) {
	name := filepath.Clean(args[0])
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("watch", "err", err)
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			var next command
			cfg, dir, err := o.loadConfig(args)
			if err == nil {
				var s *scene.Scene
				if s, err = cfg.Build(dir, log); err == nil {
					next = func(v *viewer) { v.swap(s) }
				}
			}
			if err != nil {
				log.Warn("reload", "path", name, "err", err)
				next = func(v *viewer) {
					v.status = "reload failed"
					v.scene.Invalidate()
				}
			}

			select {
			case cmds <- next:
			case <-ctx.Done():
				return
			}
		}
	}
}

// pick reports the polygon under terminal cell (col, row) in the status line.
func (v *viewer) pick(col, row int) {
	w, h := v.fb.Size()
	// cell centers; every row holds two pixels
	px, py := float64(col)+0.5, float64(row*2+1)
	ndc := math3d.V2(2*px/float64(w)-1, 1-2*py/float64(h))

	if p, ok := v.scene.Pick(ndc); ok {
		v.status = "picked " + p.ID
	} else {
		v.status = "picked nothing"
	}
	v.scene.Invalidate()
}

func (v *viewer) toggle(name string, flag *bool) {
	*flag = !*flag
	v.status = fmt.Sprintf("%s %s", name, onOff(*flag))
	v.scene.Invalidate()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// readEvents turns terminal events into commands for the render loop.
func readEvents(ctx context.Context, term *uv.Terminal, cmds chan<- command) {
	const (
		spin = 2.0 // degrees per frame added by a key press
		drag = 0.4 // degrees per frame per cell dragged
		zoom = 0.5
	)

	send := func(c command) {
		select {
		case cmds <- c:
		case <-ctx.Done():
		}
	}
	impulse := func(pitch, yaw float64) {
		send(func(v *viewer) { v.orbit.Impulse(pitch, yaw) })
	}

	var (
		mouseDown    bool
		lastX, lastY int
	)

	for ev := range term.Events() {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			w, h := ev.Width, ev.Height
			term.Erase()
			term.Resize(w, h)
			send(func(v *viewer) { v.resize(w, h) })

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape", "q", "ctrl+c"):
				send(func(v *viewer) { v.quit = true })
				return
			case ev.MatchString("w", "up"):
				impulse(spin, 0)
			case ev.MatchString("s", "down"):
				impulse(-spin, 0)
			case ev.MatchString("a", "left"):
				impulse(0, -spin)
			case ev.MatchString("d", "right"):
				impulse(0, spin)
			case ev.MatchString("space"):
				impulse((rand.Float64()-0.5)*8, (rand.Float64()-0.5)*8)
			case ev.MatchString("+", "="):
				send(func(v *viewer) { v.orbit.Zoom(-zoom); v.orbit.Apply(v.scene.Camera) })
			case ev.MatchString("-", "_"):
				send(func(v *viewer) { v.orbit.Zoom(zoom); v.orbit.Apply(v.scene.Camera) })
			case ev.MatchString("r"):
				send(func(v *viewer) {
					v.orbit.Reset()
					v.orbit.Apply(v.scene.Camera)
					v.status = ""
				})
			case ev.MatchString("x"):
				send(func(v *viewer) { v.toggle("wireframe", &v.wireframe) })
			case ev.MatchString("l"):
				send(func(v *viewer) { v.toggle("lighting", &v.scene.Options.Lighting) })
			case ev.MatchString("c"):
				send(func(v *viewer) { v.toggle("culling", &v.scene.Options.Cull) })
			case ev.MatchString("n"):
				send(func(v *viewer) { v.toggle("near clipping", &v.scene.Options.ClipNear) })
			case ev.MatchString("p"):
				send(func(v *viewer) {
					opts := &v.scene.Options
					if opts.Split == bsp.SplitPlane {
						opts.Split = bsp.SplitFootprint
					} else {
						opts.Split = bsp.SplitPlane
					}
					v.status = ""
					v.scene.Invalidate()
				})
			}

		case uv.MouseClickEvent:
			mouseDown = true
			lastX, lastY = ev.X, ev.Y
			x, y := ev.X, ev.Y
			send(func(v *viewer) { v.pick(x, y) })

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if mouseDown {
				impulse(float64(lastY-ev.Y)*drag, float64(ev.X-lastX)*drag)
				lastX, lastY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				send(func(v *viewer) { v.orbit.Zoom(-zoom); v.orbit.Apply(v.scene.Camera) })
			case uv.MouseWheelDown:
				send(func(v *viewer) { v.orbit.Zoom(zoom); v.orbit.Apply(v.scene.Camera) })
			}
		}
	}
}
