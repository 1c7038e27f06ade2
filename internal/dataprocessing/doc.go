// Package dataprocessing turns uploaded issue-tracker exports into typed tables
// and computes the dashboard statistics over them.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Parser: reads CSV, TSV, XLSX or JSON exports and validates the schema
// 2. Dedupe: drops repeated Issue keys, keeping the first occurrence
// 3. Filter: narrows a table with an immutable FilterSelection
// 4. Analytics and Summarizer: counts, means and the Dashboard payload
//
// # Usage
//
// Parsing an upload:
//
//	table, err := dataprocessing.ParseUpload(file, "export.csv")
//	if err != nil {
//	    var schemaErr *dataprocessing.SchemaError
//	    if errors.As(err, &schemaErr) {
//	        // report schemaErr.Missing to the user
//	    }
//	}
//
// Filtering and summarizing:
//
//	sel := domain.FilterSelection{}.With(domain.FilterStatus, "Open", "In Progress")
//	filtered := dataprocessing.Filter(table, sel)
//	dash := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig()).Build(ctx, table, sel)
//
// # Data Flow
//
//	Upload → Parser → Dedupe → IssueTable → Filter → Analytics → Dashboard
//
// # Error Handling
//
// Ingestion fails with one of three typed errors:
//
//   - FormatError: the file extension is not a supported format
//   - SchemaError: required columns are missing from the header
//   - ParseError: the content does not match the declared format
//
// Filtering and aggregation never fail. Means over zero eligible rows are
// reported as unavailable rather than NaN.
package dataprocessing
