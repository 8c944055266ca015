package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/goply/internal/convert"
	"github.com/philipparndt/goply/internal/watch"
	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
)

var (
	watchOutputDir string
	watchFormats   []string
	watchSmoothing string
	watchDebounce  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and convert PLY files as they appear",
	Long: `Watch a directory for new or changed PLY files and convert each one
automatically. Useful as a hotfolder for scanners or export pipelines.`,
	Args: cobra.ExactArgs(1),
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputDir, "output", "o", ".", "output directory")
	watchCmd.Flags().StringSliceVarP(&watchFormats, "formats", "f", []string{"stl"},
		"output formats (stl, obj, glb, 3mf, dxf)")
	watchCmd.Flags().StringVarP(&watchSmoothing, "smoothing", "s", "medium",
		"smoothing level (light, medium, high, ultra)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce,
		"quiet period before a changed file is converted")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	smoothing, err := mesh.ParseSmoothingLevel(watchSmoothing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	formats := make([]export.Format, 0, len(watchFormats))
	for _, f := range watchFormats {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		formats = append(formats, parsed)
	}

	if err := os.MkdirAll(watchOutputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	w, err := watch.New(watch.Options{
		InputDir:  args[0],
		OutputDir: watchOutputDir,
		Formats:   formats,
		Smoothing: smoothing,
		Debounce:  watchDebounce,
	}, convert.New(logger), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
