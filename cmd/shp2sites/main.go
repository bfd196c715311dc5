package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"

	"sightline/pkg/geo"
	"sightline/pkg/scene"
)

// shp2sites converts a building-footprint shapefile (WGS84 polygons) into
// the scene context document consumed by PUT /api/context, projecting the
// footprints onto a georeferenced frame.
func main() {
	inputPath := flag.String("input", "", "Path to input .shp file")
	outputPath := flag.String("output", "", "Path to output .json file")
	heightField := flag.String("height-field", "height", "Attribute holding the building height in meters (optional)")
	widthPx := flag.Int("width-px", 0, "Frame width in pixels")
	heightPx := flag.Int("height-px", 0, "Frame height in pixels")
	north := flag.Float64("north", 0, "Frame north latitude")
	south := flag.Float64("south", 0, "Frame south latitude")
	west := flag.Float64("west", 0, "Frame west longitude")
	east := flag.Float64("east", 0, "Frame east longitude")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		flag.Usage()
		log.Fatal("Input and output paths are required")
	}

	ref := geo.GeoReference{
		WidthPx: *widthPx, HeightPx: *heightPx,
		LatMaxNorth: *north, LatMinSouth: *south,
		LonMinWest: *west, LonMaxEast: *east,
	}
	if !ref.Valid() {
		log.Fatal("Frame georeference flags are required: width-px, height-px, north, south, west, east")
	}

	if err := run(*inputPath, *outputPath, *heightField, ref); err != nil {
		log.Fatal(err)
	}
}

func run(inputPath, outputPath, heightField string, ref geo.GeoReference) error {
	shape, err := shp.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer shape.Close()

	heightIdx := -1
	for i, f := range shape.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), heightField) {
			heightIdx = i
			break
		}
	}

	m := geo.NewMapper(nil, ref)

	var buildings []scene.Building
	skipped := 0
	for shape.Next() {
		n, p := shape.Shape()

		poly, ok := p.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		footprint := outerRingPixels(m, poly)
		if len(footprint) < 3 {
			skipped++
			continue
		}

		heightM := 0.0
		if heightIdx >= 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(shape.ReadAttribute(n, heightIdx)), 64); err == nil {
				heightM = v
			}
		}

		buildings = append(buildings, scene.Building{
			ID:        fmt.Sprintf("shp-%d", n),
			Footprint: footprint,
			HeightM:   heightM,
		})
	}
	if err := shape.Err(); err != nil {
		return fmt.Errorf("error iterating shapes: %w", err)
	}

	doc := map[string]any{"buildings": buildings}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal context document: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Printf("Converted %d buildings (%d shapes skipped) to %s\n", len(buildings), skipped, outputPath)
	return nil
}

// outerRingPixels projects the polygon's first ring into frame pixels.
// Inner rings (courtyards) do not affect the height stamp and are dropped.
func outerRingPixels(m *geo.Mapper, s *shp.Polygon) []geo.Pixel {
	end := int(s.NumPoints)
	if s.NumParts > 1 {
		end = int(s.Parts[1])
	}

	out := make([]geo.Pixel, 0, end)
	for j := 0; j < end; j++ {
		// Shapefile points are lon/lat.
		out = append(out, m.LatLonToPixel(s.Points[j].Y, s.Points[j].X))
	}
	// Drop the closing duplicate; stamping closes rings itself.
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}
