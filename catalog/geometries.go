// Package catalog is a small embedded reference table of the floppy
// geometries this module knows how to format, used by the CLI to
// resolve a human-typed variant name to a geometry.Format/parameter set.
package catalog

import (
	_ "embed"
	"fmt"

	"github.com/gocarina/gocsv"
)

// Geometry is one row of the embedded geometry table.
type Geometry struct {
	Slug              string `csv:"slug"`
	Name              string `csv:"name"`
	Variant           string `csv:"variant"`
	SectorSize        int    `csv:"sector_size"`
	SectorsPerCluster int    `csv:"sectors_per_cluster"`
	TotalSectors      int    `csv:"total_sectors"`
	RootDirEntries    int    `csv:"root_dir_entries"`
	Notes             string `csv:"notes"`
}

//go:embed geometries.csv
var geometriesRawCSV []byte

var (
	geometriesBySlug map[string]Geometry
	geometriesOrder  []string
)

func init() {
	var rows []Geometry
	if err := gocsv.UnmarshalBytes(geometriesRawCSV, &rows); err != nil {
		panic(fmt.Errorf("catalog: failed to decode embedded geometry table: %w", err))
	}

	geometriesBySlug = make(map[string]Geometry, len(rows))
	for _, row := range rows {
		if _, exists := geometriesBySlug[row.Slug]; exists {
			panic(fmt.Errorf("catalog: duplicate geometry slug %q", row.Slug))
		}
		geometriesBySlug[row.Slug] = row
		geometriesOrder = append(geometriesOrder, row.Slug)
	}
}

// Lookup returns the geometry registered under slug, e.g. "ibm144" or
// "victor-ds".
func Lookup(slug string) (Geometry, error) {
	g, ok := geometriesBySlug[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("catalog: no predefined geometry with slug %q", slug)
	}
	return g, nil
}

// All returns every known geometry, in the embedded table's row order.
func All() []Geometry {
	out := make([]Geometry, 0, len(geometriesOrder))
	for _, slug := range geometriesOrder {
		out = append(out, geometriesBySlug[slug])
	}
	return out
}
