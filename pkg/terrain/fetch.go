package terrain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	h3 "github.com/uber/h3-go/v4"
	"golang.org/x/time/rate"

	"sightline/pkg/geo"
	"sightline/pkg/scene"
)

// SampleClient fetches terrain elevations for a batch of points, in order.
type SampleClient interface {
	Elevations(ctx context.Context, pts []geo.Point) ([]float64, error)
}

// Cache stores fetched elevation samples across runs.
type Cache interface {
	GetElevation(ctx context.Context, key string) (float64, bool)
	SetElevation(ctx context.Context, key string, elevationM float64) error
}

// HTTPClient queries an open-elevation style lookup endpoint
// (POST {"locations":[{"latitude":..,"longitude":..}]}).
type HTTPClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient creates a client limited to rps requests per second.
func NewHTTPClient(baseURL string, rps float64) *HTTPClient {
	if rps <= 0 {
		rps = 5
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type lookupRequest struct {
	Locations []lookupLocation `json:"locations"`
}

type lookupLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupResponse struct {
	Results []struct {
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

// Elevations fetches one batch of point elevations.
func (c *HTTPClient) Elevations(ctx context.Context, pts []geo.Point) ([]float64, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := lookupRequest{Locations: make([]lookupLocation, len(pts))}
	for i, p := range pts {
		req.Locations[i] = lookupLocation{Latitude: p.Lat, Longitude: p.Lon}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode lookup request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create lookup request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevation lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevation lookup: unexpected status %d", resp.StatusCode)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	if len(decoded.Results) != len(pts) {
		return nil, fmt.Errorf("elevation lookup: got %d results for %d points", len(decoded.Results), len(pts))
	}

	out := make([]float64, len(pts))
	for i, r := range decoded.Results {
		out[i] = r.Elevation
	}
	return out, nil
}

// Fetcher builds an ElevationGrid over a frame's bounds in progressive
// passes: a coarse grid first, halving the cell stride each pass, visiting
// cells center-out so the middle of the frame resolves first. Each pass
// publishes an intermediate grid (missing cells filled from the nearest
// coarse sample) so callers can render a preview while fetching continues.
type Fetcher struct {
	client    SampleClient
	cache     Cache
	batchSize int
	h3Res     int
}

// NewFetcher creates a fetcher. cache may be nil.
func NewFetcher(client SampleClient, cache Cache, batchSize, h3Res int) *Fetcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if h3Res <= 0 {
		h3Res = 13
	}
	return &Fetcher{client: client, cache: cache, batchSize: batchSize, h3Res: h3Res}
}

// CacheKey returns the cache key for a sample point: its H3 cell at the
// fetcher's resolution. Quantizing through H3 dedupes near-identical
// points across frames.
func (f *Fetcher) CacheKey(p geo.Point) string {
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lon}, f.h3Res)
	if err != nil {
		return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
	}
	return cell.String()
}

// FetchGrid fetches a rows x cols elevation grid covering ref, publishing
// an intermediate grid after every pass. The final complete grid is
// returned. Cancelling the context aborts between batches.
func (f *Fetcher) FetchGrid(ctx context.Context, ref geo.GeoReference, rows, cols, passes int, publish func(*geo.ElevationGrid)) (*geo.ElevationGrid, error) {
	if !ref.Valid() || rows < 2 || cols < 2 {
		return nil, fmt.Errorf("invalid fetch request: ref=%+v rows=%d cols=%d", ref, rows, cols)
	}
	if passes < 1 {
		passes = 1
	}

	latRange := ref.LatMaxNorth - ref.LatMinSouth
	lonRange := ref.LonMaxEast - ref.LonMinWest

	// North-to-south rows, west-to-east columns, sampled at cell centers.
	lats := make([]float64, rows)
	for r := 0; r < rows; r++ {
		lats[r] = ref.LatMaxNorth - ((float64(r)+0.5)/float64(rows))*latRange
	}
	lons := make([]float64, cols)
	for c := 0; c < cols; c++ {
		lons[c] = ref.LonMinWest + ((float64(c)+0.5)/float64(cols))*lonRange
	}

	values := make([][]float64, rows)
	known := make([][]bool, rows)
	for r := range values {
		values[r] = make([]float64, cols)
		known[r] = make([]bool, cols)
	}

	started := time.Now()
	for pass := 0; pass < passes; pass++ {
		stride := 1 << (passes - 1 - pass)
		if err := f.fetchPass(ctx, lats, lons, values, known, stride); err != nil {
			return nil, err
		}

		grid, err := geo.NewElevationGrid(fillUnknown(values, known, stride), lats, lons)
		if err != nil {
			return nil, err
		}
		if pass < passes-1 {
			if publish != nil {
				publish(grid)
			}
			continue
		}
		slog.Info("elevation grid complete",
			"rows", rows, "cols", cols, "passes", passes,
			"elapsed", time.Since(started).Round(time.Millisecond))
		if publish != nil {
			publish(grid)
		}
		return grid, nil
	}
	return nil, fmt.Errorf("no passes executed")
}

// fetchPass fetches every not-yet-known cell on the stride lattice, in
// spiral order over the coarse grid.
func (f *Fetcher) fetchPass(ctx context.Context, lats, lons []float64, values [][]float64, known [][]bool, stride int) error {
	rows, cols := len(lats), len(lons)
	coarseRows := (rows + stride - 1) / stride
	coarseCols := (cols + stride - 1) / stride

	var pending [][2]int
	for _, idx := range scene.SpiralIndexOrder(coarseRows, coarseCols) {
		r := (idx / coarseCols) * stride
		c := (idx % coarseCols) * stride
		if !known[r][c] {
			pending = append(pending, [2]int{r, c})
		}
	}

	for start := 0; start < len(pending); start += f.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + f.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		// Serve what we can from the cache, fetch the rest.
		var missPts []geo.Point
		var missIdx []int
		for i, cell := range batch {
			p := geo.Point{Lat: lats[cell[0]], Lon: lons[cell[1]]}
			if f.cache != nil {
				if v, ok := f.cache.GetElevation(ctx, f.CacheKey(p)); ok {
					values[cell[0]][cell[1]] = v
					known[cell[0]][cell[1]] = true
					continue
				}
			}
			missPts = append(missPts, p)
			missIdx = append(missIdx, i)
		}
		if len(missPts) == 0 {
			continue
		}

		elevations, err := f.client.Elevations(ctx, missPts)
		if err != nil {
			return fmt.Errorf("fetch elevation batch: %w", err)
		}
		for i, v := range elevations {
			cell := batch[missIdx[i]]
			values[cell[0]][cell[1]] = v
			known[cell[0]][cell[1]] = true
			if f.cache != nil {
				if err := f.cache.SetElevation(ctx, f.CacheKey(missPts[i]), v); err != nil {
					slog.Debug("elevation cache write failed", "error", err)
				}
			}
		}
	}
	return nil
}

// fillUnknown copies values, filling cells not fetched yet from the
// nearest sample on the stride lattice.
func fillUnknown(values [][]float64, known [][]bool, stride int) [][]float64 {
	rows := len(values)
	cols := len(values[0])
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			if known[r][c] {
				out[r][c] = values[r][c]
				continue
			}
			sr := int(math.Round(float64(r)/float64(stride))) * stride
			sc := int(math.Round(float64(c)/float64(stride))) * stride
			if sr > rows-1 {
				sr = (rows - 1) / stride * stride
			}
			if sc > cols-1 {
				sc = (cols - 1) / stride * stride
			}
			if known[sr][sc] {
				out[r][c] = values[sr][sc]
			}
		}
	}
	return out
}
