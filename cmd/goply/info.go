package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/philipparndt/goply/pkg/geometry"
	"github.com/philipparndt/goply/pkg/mesh"
	"github.com/philipparndt/goply/pkg/ply"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display general information about a PLY file",
	Long:  "Show point and face counts, bounding box, color presence, and how the file would be classified for conversion.",
	Args:  cobra.ExactArgs(1),
	Run:   runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) {
	filename := args[0]

	cloud, err := ply.Load(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing PLY file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("PLY File Information")
	fmt.Println("====================")
	fmt.Printf("File: %s\n\n", filename)

	kind := "mesh"
	if cloud.IsPointCloud() {
		kind = "point cloud"
	}
	fmt.Println("Model Statistics:")
	fmt.Printf("  Type: %s\n", kind)
	fmt.Printf("  Points: %d\n", len(cloud.Points))
	fmt.Printf("  Faces: %d\n", len(cloud.Faces))
	fmt.Printf("  Vertex colors: %v\n", cloud.HasColors())
	fmt.Printf("  Vertex normals: %v\n\n", len(cloud.Normals) == len(cloud.Points) && len(cloud.Points) > 0)

	bounds := cloud.Bounds()
	size := bounds.Size()
	fmt.Println("Bounding Box:")
	fmt.Printf("  Min: %s\n", geometry.FormatVector(bounds.Min))
	fmt.Printf("  Max: %s\n", geometry.FormatVector(bounds.Max))
	fmt.Printf("  Center: %s\n\n", geometry.FormatVector(bounds.Center()))

	fmt.Println("Dimensions:")
	fmt.Printf("  Width (X): %.6f units\n", size.X)
	fmt.Printf("  Depth (Y): %.6f units\n", size.Y)
	fmt.Printf("  Height (Z): %.6f units\n", size.Z)
	fmt.Printf("  Diagonal: %.6f units\n", bounds.Diagonal())

	if !cloud.IsPointCloud() {
		m := mesh.FromPointCloud(cloud)
		fmt.Println("\nMesh Properties:")
		fmt.Printf("  Surface Area: %.6f square units\n", m.SurfaceArea())
		fmt.Printf("  Signed Volume: %.6f cubic units\n", m.SignedVolume())
		fmt.Printf("  Outward Ratio: %.3f\n", m.OutwardRatio())
	}
}
