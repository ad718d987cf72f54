// Package tasks runs long library operations with real-time progress reporting.
//
// # Library Export
//
// [Exporter.Export] writes every shelf in the library to its own file:
//   - shelves are fanned out to a small worker pool
//   - each worker fetches the shelf's volumes and renders them with the formatter package
//   - a manifest summarizing successes and failures is written last
//
// A failing shelf does not stop the others. Its error is recorded in the manifest.
//
// # Progress Reporting
//
// Operations take an optional channel of [ProgressUpdate]. Updates are sent with select and default, so a slow
// or absent reader never blocks the export.
package tasks
