// Package recorder converts finished workflow results into scenario records
// and writes them asynchronously.
//
// Record never waits on storage. It buffers the record for a single worker
// and gives up after WriteTimeout when the buffer stays full. Close drains
// whatever is buffered before returning, so records of counted results
// survive a batch timeout.
//
//	rec := recorder.NewRecorder(store, recorder.ConfigFrom(cfg.Evidence), recorder.WithLogger(logger))
//	defer rec.Close()
//
//	if err := rec.Record(ctx, settings, result); err != nil {
//	    logger.Warn("scenario record dropped", "error", err)
//	}
package recorder
