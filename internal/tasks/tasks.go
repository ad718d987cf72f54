package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/bkx/internal/formatter"
	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/shared"
)

const (
	defaultWorkers = 4
	maxWorkers     = 8
	manifestName   = "export_manifest.json"
)

// VolumeFetcher loads the volumes on one shelf.
type VolumeFetcher func(ctx context.Context, shelfID string) ([]models.Volume, error)

// ExportOpts contains configuration for library exports.
type ExportOpts struct {
	Format     formatter.Format // text, markdown, csv or json
	OutputDir  string           // default: library_export_{epoch}
	NumWorkers int              // concurrent shelf fetches (default: 4)
}

// ShelfExportResult is the outcome for one shelf.
type ShelfExportResult struct {
	ShelfID string `json:"shelf_id"`
	Title   string `json:"title"`
	Volumes int    `json:"volumes"`
	File    string `json:"file,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ExportResult summarizes a library export. It is also the manifest's content.
type ExportResult struct {
	TotalShelves    int                 `json:"total_shelves"`
	Successful      int                 `json:"successful"`
	Failed          int                 `json:"failed"`
	OutputDirectory string              `json:"output_directory"`
	ManifestPath    string              `json:"-"`
	Results         []ShelfExportResult `json:"results"`
}

// Exporter writes a library to disk.
type Exporter struct {
	fetch VolumeFetcher
}

// NewExporter creates an exporter that loads shelves through fetch.
func NewExporter(fetch VolumeFetcher) *Exporter {
	return &Exporter{fetch: fetch}
}

type exportJob struct {
	index int
	shelf models.Shelf
}

// Export writes each shelf to its own file in opts.OutputDir using a worker pool, then writes a manifest.
//
// Results keep the order of shelves. Cancelling ctx stops queued shelves; they are reported as failed.
func (e *Exporter) Export(ctx context.Context, prog chan<- ProgressUpdate, shelves []models.Shelf, opts ExportOpts) (*ExportResult, error) {
	if e.fetch == nil {
		return nil, fmt.Errorf("%w: no volume fetcher", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = formatter.Text
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("library_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalShelves:    len(shelves),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ShelfExportResult, len(shelves)),
	}

	jobs := make(chan exportJob)
	done := make(chan exportJob, len(shelves))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result.Results[job.index] = e.exportShelf(ctx, job.shelf, opts)
				done <- job
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, shelf := range shelves {
			sendProgress(prog, fetchShelfUpdate(i+1, len(shelves), shelf))
			select {
			case jobs <- exportJob{index: i, shelf: shelf}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	seen := make([]bool, len(shelves))
	for job := range done {
		completed++
		seen[job.index] = true
		res := result.Results[job.index]
		if res.Success {
			sendProgress(prog, exportCompletedUpdate(completed, len(shelves), res))
		} else {
			sendProgress(prog, exportFailedUpdate(completed, len(shelves), res))
		}
	}

	for i, ok := range seen {
		if !ok {
			result.Results[i] = ShelfExportResult{
				ShelfID: shelves[i].Key(),
				Title:   shelves[i].DisplayTitle(),
				Error:   fmt.Sprintf("not exported: %v", ctx.Err()),
			}
		}
		if result.Results[i].Success {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	sendProgress(prog, manifestUpdate(manifestPath))
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := formatter.WriteExport(manifestPath, data); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportShelf fetches and writes one shelf.
func (e *Exporter) exportShelf(ctx context.Context, shelf models.Shelf, opts ExportOpts) ShelfExportResult {
	res := ShelfExportResult{ShelfID: shelf.Key(), Title: shelf.DisplayTitle()}

	volumes, err := e.fetch(ctx, shelf.Key())
	if err != nil {
		res.Error = fmt.Sprintf("fetch failed: %v", err)
		return res
	}
	for _, v := range volumes {
		if v.Renderable() {
			res.Volumes++
		}
	}

	data, err := formatter.Volumes(opts.Format, shelf, volumes)
	if err != nil {
		res.Error = fmt.Sprintf("%s export failed: %v", opts.Format, err)
		return res
	}

	path := filepath.Join(opts.OutputDir, ShelfFilename(shelf, opts.Format))
	if err := formatter.WriteExport(path, data); err != nil {
		res.Error = err.Error()
		return res
	}

	res.File = path
	res.Success = true
	return res
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ShelfFilename returns "{id}-{slug}.{ext}" for shelf, e.g. "0-favorites.md".
func ShelfFilename(shelf models.Shelf, f formatter.Format) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(shelf.DisplayTitle()), "-"), "-")
	if slug == "" {
		slug = "shelf"
	}
	return fmt.Sprintf("%s-%s.%s", shelf.Key(), slug, extension(f))
}

func extension(f formatter.Format) string {
	switch f {
	case formatter.Markdown:
		return "md"
	case formatter.CSV:
		return "csv"
	case formatter.JSON:
		return "json"
	default:
		return "txt"
	}
}
