// Package logger builds slog loggers with per-call context attribute
// extraction.
//
// The factory produces JSON loggers; Decorate wraps any slog.Handler so
// that values carried in a context (request IDs, tenant IDs) are attached
// to every record logged with that context:
//
//	log := logger.New(logger.WithExtractors(func(ctx context.Context) (slog.Attr, bool) {
//	    if id, ok := ctx.Value(requestIDKey).(string); ok {
//	        return slog.String("request_id", id), true
//	    }
//	    return slog.Attr{}, false
//	}))
package logger
