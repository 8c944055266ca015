package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/philipparndt/goply/version"
)

var rootCmd = &cobra.Command{
	Use:   "goply",
	Short: "A CLI tool and service for converting PLY files into printable meshes",
	Long: `goply converts PLY (Polygon File Format) files into common 3D formats.
Point clouds are surface-reconstructed, meshes are smoothed and their face
orientation is fixed, and the result is exported to STL, OBJ, GLB, 3MF or DXF.`,
	Version: version.GetFullVersion(),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
