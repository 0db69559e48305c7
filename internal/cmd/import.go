package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/romhost/internal/objectdb"
	"github.com/MeKo-Tech/romhost/internal/objects"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a GeoJSON file into an object database",
	Long: `Import the point features of a GeoJSON FeatureCollection into a SQLite
object database that serve can use with --source name=sqlite:path.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("input", "i", "", "Input GeoJSON file (required)")
	importCmd.Flags().StringP("output", "o", "", "Output database file path (required)")
	importCmd.Flags().String("name", "", "Dataset name (default: input file name)")
	importCmd.Flags().String("description", "", "Dataset description")
	importCmd.Flags().String("attribution", "", "Attribution text")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"import.input", "input"},
		{"import.output", "output"},
		{"import.name", "name"},
		{"import.description", "description"},
		{"import.attribution", "attribution"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, importCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	input := viper.GetString("import.input")
	output := viper.GetString("import.output")
	name := viper.GetString("import.name")

	if logger == nil {
		initLogging()
	}

	if input == "" {
		return fmt.Errorf("--input is required")
	}
	if output == "" {
		return fmt.Errorf("--output is required")
	}
	if name == "" {
		name = filepath.Base(input)
	}

	logger.Info("Importing GeoJSON objects", "input", input, "output", output, "name", name)

	written, skipped, err := importGeoJSON(input, output, objectdb.Metadata{
		Name:        name,
		Description: viper.GetString("import.description"),
		Attribution: viper.GetString("import.attribution"),
		Origin:      input,
	})
	if err != nil {
		return err
	}

	logger.Info("Import complete", "output", output, "objects", written, "skipped_features", skipped)
	return nil
}

// importGeoJSON writes the point objects of the FeatureCollection at input to
// a new database at output. meta.Bounds is computed from the objects.
func importGeoJSON(input, output string, meta objectdb.Metadata) (written, skipped int, err error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read input: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse %s: %w", input, err)
	}

	var (
		objs  []objects.Object
		bound orb.Bound
	)
	for i, f := range fc.Features {
		fo := objects.FeatureObjects(f, i)
		if len(fo) == 0 {
			skipped++
			continue
		}
		for _, o := range fo {
			if len(objs) == 0 {
				bound = o.Point.Bound()
			} else {
				bound = bound.Extend(o.Point)
			}
			objs = append(objs, o)
		}
	}
	if len(objs) == 0 {
		return 0, skipped, fmt.Errorf("no point features in %s", input)
	}
	meta.Bounds = [4]float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}

	w, err := objectdb.New(output, meta)
	if err != nil {
		return 0, skipped, fmt.Errorf("failed to create object database: %w", err)
	}
	for _, o := range objs {
		if err := w.Write(objectdb.Record{ID: o.ID, Lat: o.Point.Lat(), Lon: o.Point.Lon(), Properties: o.Properties}); err != nil {
			w.Close()
			return 0, skipped, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, skipped, err
	}
	return w.Written(), skipped, nil
}
