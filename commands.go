package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/cncslice/pkg/gcode"
	"github.com/chazu/cncslice/pkg/layer"
	"github.com/chazu/cncslice/pkg/logging"
	"github.com/chazu/cncslice/pkg/meshio"
	"github.com/chazu/cncslice/pkg/pipeline"
	"github.com/chazu/cncslice/pkg/preview"
	"github.com/chazu/cncslice/pkg/server"
	"github.com/spf13/cobra"
)

func newRootCmd(app *App) *cobra.Command {
	var verbose, quiet bool
	root := &cobra.Command{
		Use:           "cncslice",
		Short:         "Slice meshes and job scripts into layered G-code",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetLogger(logging.New(cmd.ErrOrStderr(), verbose, quiet))
		},
	}
	app.Options = optionFlags()
	pf := root.PersistentFlags()
	pf.StringVarP(&app.ConfigFile, "config", "c", "", "YAML job configuration file")
	pf.StringArrayVar(&app.Set, "set", nil, "set an option as key=value (repeatable)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log per-layer details")
	pf.BoolVarP(&quiet, "quiet", "q", false, "log nothing")
	pf.AddFlagSet(app.Options)

	root.AddCommand(
		newSliceCmd(app),
		newInfoCmd(app),
		newPreviewCmd(app),
		newServeCmd(app),
		newConfigCmd(app),
	)
	return root
}

func newSliceCmd(app *App) *cobra.Command {
	var output, saveMesh string
	cmd := &cobra.Command{
		Use:   "slice INPUT",
		Short: "Write the G-code program for a mesh (.stl, .3mf) or job script (.lisp)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := app.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if saveMesh != "" {
				if err := meshio.Save(saveMesh, in.Mesh); err != nil {
					return err
				}
			}
			if output == "" {
				output = strings.TrimSuffix(in.Path, filepath.Ext(in.Path)) + ".gcode"
			}
			return slice(ctx, in, output, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default INPUT with a .gcode extension)")
	cmd.Flags().StringVar(&saveMesh, "save-mesh", "", "also write the sliced mesh to this .stl or .3mf file")
	return cmd
}

func slice(ctx context.Context, in *Input, output string, stdout, stderr io.Writer) (err error) {
	if err := pipeline.Check(in.Mesh, in.Config); err != nil {
		return err
	}
	w := stdout
	if output != "-" {
		f, cerr := os.Create(output)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	start := time.Now()
	res, err := pipeline.Run(ctx, in.Mesh, in.Config, w, pipeline.Options{})
	if res != nil {
		fmt.Fprintf(stderr, "%s: %d of %d layers, cut %.1f, travel %.1f, estimated %s, %d warnings (%s)\n",
			in.Path, res.Layers, res.Planned, res.CutLength, res.TravelLength,
			res.CycleTime.Round(time.Second), len(res.Warnings), time.Since(start).Round(time.Millisecond))
	}
	return err
}

func isProgram(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gcode", ".nc", ".ngc", ".tap":
		return true
	}
	return false
}

func newInfoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info INPUT",
		Short: "Describe a mesh, job script or G-code program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if isProgram(args[0]) {
				return programInfo(out, args[0])
			}
			in, err := app.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			m, cfg := in.Mesh, in.Config
			b := m.Bounds()
			size := b.Size()
			fmt.Fprintf(out, "triangles: %d\n", m.Len())
			fmt.Fprintf(out, "skipped:   %d\n", len(m.Skipped()))
			fmt.Fprintf(out, "bounds:    %g %g %g .. %g %g %g\n", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
			fmt.Fprintf(out, "size:      %g x %g x %g\n", size.X, size.Y, size.Z)
			fmt.Fprintf(out, "area:      %.3f\n", m.Area())
			fmt.Fprintf(out, "volume:    %.3f\n", m.Volume())
			fmt.Fprintf(out, "layers:    %d at %g (%s)\n", len(pipeline.Heights(m, cfg)), cfg.LayerHeight, cfg.Direction)
			for _, ge := range m.Skipped() {
				fmt.Fprintf(out, "  %v\n", ge)
			}
			return nil
		},
	}
}

func programInfo(out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	cmds, err := gcode.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s := gcode.Summarize(cmds)
	fmt.Fprintf(out, "commands:  %d\n", s.Commands)
	fmt.Fprintf(out, "layers:    %d\n", s.Layers)
	fmt.Fprintf(out, "rapids:    %d (%.1f)\n", s.Rapids, s.RapidDist)
	fmt.Fprintf(out, "feeds:     %d (%.1f)\n", s.Feeds, s.FeedDist)
	if !s.Bounds.Empty() {
		fmt.Fprintf(out, "extent:    %g %g .. %g %g, z %g .. %g\n",
			s.Bounds.Min.X, s.Bounds.Min.Y, s.Bounds.Max.X, s.Bounds.Max.Y, s.MinZ, s.MaxZ)
	}
	return nil
}

func newPreviewCmd(app *App) *cobra.Command {
	var dir, format string
	var noPaths, noHatches bool
	cmd := &cobra.Command{
		Use:   "preview INPUT",
		Short: "Draw the sliced layers as SVG images or a DXF drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := app.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			layers, err := pipeline.Slice(cmd.Context(), in.Mesh, in.Config)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			opts := preview.DefaultOptions()
			opts.Paths, opts.Hatches = !noPaths, !noHatches
			name := strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path))

			switch format {
			case "svg":
				opts.Frame = preview.Frame(layers, opts)
				for _, l := range layers {
					path := filepath.Join(dir, fmt.Sprintf("%s-%03d.svg", name, l.Index+1))
					if err := writeSVG(path, l, opts); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d layers to %s\n", len(layers), dir)
			case "dxf":
				path := filepath.Join(dir, name+".dxf")
				if err := preview.DXF(path, layers, opts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d layers to %s\n", len(layers), path)
			default:
				return fmt.Errorf("unknown preview format %q (svg, dxf)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", "preview", "output directory")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "svg (one file per layer) or dxf (one drawing)")
	cmd.Flags().BoolVar(&noPaths, "no-paths", false, "omit tool paths")
	cmd.Flags().BoolVar(&noHatches, "no-hatches", false, "omit hatch passes")
	return cmd
}

func writeSVG(path string, l layer.Layer, opts preview.Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return preview.SVG(f, l, opts)
}

func newServeCmd(app *App) *cobra.Command {
	var addr, bodyLimit string
	var noScripts bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the slicer over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			opts := server.Options{Base: cfg, Kernel: app.kernel, BodyLimit: bodyLimit}
			if noScripts {
				opts.Kernel = nil
			}
			srv := server.New(opts)

			errc := make(chan error, 1)
			go func() { errc <- srv.Start(addr) }()
			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return <-errc
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&bodyLimit, "body-limit", "64M", "largest accepted request body")
	cmd.Flags().BoolVar(&noScripts, "no-scripts", false, "reject job script requests")
	return cmd
}

func newConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "config [INPUT]",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			var in *Input
			if len(args) == 1 {
				in, err = app.Load(cmd.Context(), args[0])
			} else {
				in = &Input{}
				in.Config, err = app.Config()
			}
			if err != nil {
				return err
			}
			data, err := in.Config.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
