package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/bkx/internal/formatter"
	"github.com/desertthunder/bkx/internal/models"
	th "github.com/desertthunder/bkx/internal/testing"
)

func shelves() []models.Shelf {
	return []models.Shelf{
		{ID: 0, Title: "Favorites", VolumeCount: 2},
		{ID: 3, Title: "Reading now", VolumeCount: 1},
		{ID: 7, Title: "Have read", VolumeCount: 0},
	}
}

func fetcher(failing string) VolumeFetcher {
	data := map[string][]models.Volume{
		"0": {
			{ID: "v1", VolumeInfo: &models.VolumeInfo{Title: "Emma", Authors: []string{"Jane Austen"}}},
			{ID: "v2", VolumeInfo: &models.VolumeInfo{Title: "Persuasion", Authors: []string{"Jane Austen"}}},
		},
		"3": {{ID: "v3", VolumeInfo: &models.VolumeInfo{Title: "Dune"}}, {ID: "bare"}},
	}
	return func(ctx context.Context, shelfID string) ([]models.Volume, error) {
		if shelfID == failing {
			return nil, errors.New("Shelf fetch failed: 500 Internal Server Error")
		}
		return data[shelfID], nil
	}
}

func TestExport(t *testing.T) {
	tests := []struct {
		name   string
		format formatter.Format
		file   string
		want   string
	}{
		{"text", formatter.Text, "0-favorites.txt", "1. Emma - Jane Austen"},
		{"markdown", formatter.Markdown, "0-favorites.md", "# Favorites"},
		{"csv", formatter.CSV, "0-favorites.csv", "v2,Persuasion,Jane Austen"},
		{"json", formatter.JSON, "0-favorites.json", `"id": "v1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			result, err := NewExporter(fetcher("")).Export(context.Background(), nil, shelves(), ExportOpts{
				Format:    tt.format,
				OutputDir: dir,
			})
			if err != nil {
				t.Fatalf("Export failed: %v", err)
			}

			if result.Successful != 3 || result.Failed != 0 {
				t.Errorf("expected 3 successes, got %d/%d", result.Successful, result.Failed)
			}
			path := filepath.Join(dir, tt.file)
			th.AssertFileExists(t, path)
			if content := th.MustReadFile(t, path); !strings.Contains(content, tt.want) {
				t.Errorf("expected %q in %s, got: %s", tt.want, tt.file, content)
			}
		})
	}

	t.Run("keeps shelf order and counts renderable volumes", func(t *testing.T) {
		result, err := NewExporter(fetcher("")).Export(context.Background(), nil, shelves(), ExportOpts{
			OutputDir:  t.TempDir(),
			NumWorkers: 2,
		})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}

		for i, want := range []string{"0", "3", "7"} {
			if result.Results[i].ShelfID != want {
				t.Errorf("result %d: expected shelf %s, got %s", i, want, result.Results[i].ShelfID)
			}
		}
		if got := result.Results[1].Volumes; got != 1 {
			t.Errorf("expected 1 renderable volume on Reading now, got %d", got)
		}
	})

	t.Run("records failures and continues", func(t *testing.T) {
		dir := t.TempDir()
		prog := make(chan ProgressUpdate, 32)

		result, err := NewExporter(fetcher("3")).Export(context.Background(), prog, shelves(), ExportOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		close(prog)

		if result.Successful != 2 || result.Failed != 1 {
			t.Errorf("expected 2 successes and 1 failure, got %d/%d", result.Successful, result.Failed)
		}
		failed := result.Results[1]
		if failed.Success || !strings.Contains(failed.Error, "Shelf fetch failed") {
			t.Errorf("expected recorded failure, got %+v", failed)
		}

		var sawFailure bool
		for u := range prog {
			if u.Phase == ExportShelf && strings.Contains(u.Message, "✗ Reading now") {
				sawFailure = true
			}
		}
		if !sawFailure {
			t.Error("expected a failure progress update")
		}
	})

	t.Run("writes manifest", func(t *testing.T) {
		dir := t.TempDir()
		result, err := NewExporter(fetcher("7")).Export(context.Background(), nil, shelves(), ExportOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}

		if result.ManifestPath != filepath.Join(dir, "export_manifest.json") {
			t.Errorf("unexpected manifest path %s", result.ManifestPath)
		}
		var manifest ExportResult
		if err := json.Unmarshal([]byte(th.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if manifest.TotalShelves != 3 || manifest.Failed != 1 || len(manifest.Results) != 3 {
			t.Errorf("unexpected manifest %+v", manifest)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls atomic.Int32
		fetch := func(ctx context.Context, shelfID string) ([]models.Volume, error) {
			calls.Add(1)
			return nil, ctx.Err()
		}
		result, err := NewExporter(fetch).Export(ctx, nil, shelves(), ExportOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if result.Successful != 0 || result.Failed != 3 {
			t.Errorf("expected every shelf to fail, got %d/%d", result.Successful, result.Failed)
		}
	})

	t.Run("no fetcher", func(t *testing.T) {
		if _, err := NewExporter(nil).Export(context.Background(), nil, shelves(), ExportOpts{OutputDir: t.TempDir()}); err == nil {
			t.Error("expected error without a fetcher")
		}
	})

	t.Run("unwritable directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewExporter(fetcher("")).Export(context.Background(), nil, shelves(), ExportOpts{OutputDir: filepath.Join(file, "out")}); err == nil {
			t.Error("expected error creating output directory")
		}
	})
}

func TestShelfFilename(t *testing.T) {
	tests := []struct {
		shelf  models.Shelf
		format formatter.Format
		want   string
	}{
		{models.Shelf{ID: 3, Title: "Reading now"}, formatter.Markdown, "3-reading-now.md"},
		{models.Shelf{ID: 7, Title: "  Have read!! "}, formatter.CSV, "7-have-read.csv"},
		{models.Shelf{ID: 9}, formatter.Text, "9-shelf.txt"},
		{models.Shelf{ID: 1, Title: "???"}, formatter.JSON, "1-shelf.json"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ShelfFilename(tt.shelf, tt.format); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
