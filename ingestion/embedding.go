package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/scholarly/ai"
	"github.com/poiesic/scholarly/core"
)

// recordEmbedder attaches an embedding to new records before they are stored.
type recordEmbedder struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// embed sets record.Vector to the normalized embedding of its content. A failed embedding leaves the record without a
// vector; the record is still stored.
func (re *recordEmbedder) embed(ctx context.Context, record *core.IngestionRecord) {
	if re == nil {
		return
	}
	vector, err := re.embedder.EmbedText(ctx, record.Content)
	if err != nil {
		re.logger.Warn("error generating embedding", "id", record.ID, "err", err)
		return
	}
	record.Vector = ai.NormalizeVector(vector)
}
