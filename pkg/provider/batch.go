package provider

import (
	"context"

	"github.com/charmbracelet/log"
)

// Chunk splits ids into consecutive batches of at most size ids.
// A size below 1 is treated as BatchSize.
func Chunk(ids []string, size int) [][]string {
	if size < 1 {
		size = BatchSize
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// LookupAll resolves ids through l in batches of at most BatchSize ids.
//
// A failed batch is logged and skipped so one bad batch does not discard the
// rest of the index. Only context cancellation aborts the whole lookup.
func LookupAll(ctx context.Context, l Lookuper, ids []string, logger *log.Logger) ([]Company, error) {
	if logger == nil {
		logger = log.Default()
	}
	var out []Company
	for i, batch := range Chunk(ids, BatchSize) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		companies, err := l.LookupCompanies(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			logger.Warn("company lookup failed", "batch", i, "size", len(batch), "err", err)
			continue
		}
		out = append(out, companies...)
	}
	return out, nil
}
