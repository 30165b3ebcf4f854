// Package export writes scenario records as JSON or CSV.
//
// Export takes a slice; ExportStream consumes a storage QueryStream channel
// so large audits never sit in memory:
//
//	recordsCh, errCh, err := store.QueryStream(ctx, q)
//	if err != nil {
//	    return err
//	}
//	if err := export.NewCSVExporter(true).ExportStream(ctx, recordsCh, os.Stdout); err != nil {
//	    return err
//	}
//	return <-errCh
package export
