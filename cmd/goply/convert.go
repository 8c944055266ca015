package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/goply/internal/convert"
	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
)

var (
	convertOutputDir string
	convertFormats   []string
	convertSmoothing string
	convertJobID     string
	convertVerbose   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert a PLY file to one or more output formats",
	Long: `Convert a PLY file into printable mesh formats. Point clouds are
surface-reconstructed first; meshes are smoothed at the requested level.
Each output is written as <name>_smooth.<format> into the output directory.`,
	Args: cobra.ExactArgs(1),
	Run:  runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutputDir, "output", "o", ".", "output directory")
	convertCmd.Flags().StringSliceVarP(&convertFormats, "formats", "f", []string{"stl"},
		"output formats (stl, obj, glb, 3mf, dxf)")
	convertCmd.Flags().StringVarP(&convertSmoothing, "smoothing", "s", "medium",
		"smoothing level (light, medium, high, ultra)")
	convertCmd.Flags().StringVar(&convertJobID, "name", "", "output name prefix (defaults to the input name)")
	convertCmd.Flags().BoolVarP(&convertVerbose, "verbose", "v", false, "verbose logging")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) {
	smoothing, err := mesh.ParseSmoothingLevel(convertSmoothing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	formats := make([]export.Format, 0, len(convertFormats))
	for _, f := range convertFormats {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		formats = append(formats, parsed)
	}

	if err := os.MkdirAll(convertOutputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	if convertVerbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	outcome, err := convert.New(logger).Convert(convert.Request{
		InputPath: args[0],
		OutputDir: convertOutputDir,
		JobID:     convertJobID,
		Formats:   formats,
		Smoothing: smoothing,
		Progress: func(percent int, stage string) {
			if convertVerbose {
				fmt.Printf("  [%3d%%] %s\n", percent, stage)
			}
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Converted %s (%s", args[0], outcome.Source)
	if outcome.Strategy != "" {
		fmt.Printf(", %s reconstruction", outcome.Strategy)
	}
	fmt.Printf(")\n")
	fmt.Printf("  Vertices: %d\n", outcome.Vertices)
	fmt.Printf("  Faces: %d\n", outcome.Faces)
	for _, format := range formats {
		if path, ok := outcome.Outputs[format]; ok {
			fmt.Printf("  %s: %s\n", format, path)
		} else {
			fmt.Printf("  %s: failed (%v)\n", format, outcome.Failed[format])
		}
	}
}
