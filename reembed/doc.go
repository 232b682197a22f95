// Package reembed backfills or refreshes the embeddings of stored records.
//
// Records ingested while no embedder was configured have no vector and are
// invisible to semantic recall. A Reembedder walks a room in batches, embeds
// each batch with one EmbedTexts call (retried with backoff), normalizes the
// vectors and writes them back with SetVector. Only the vector changes; the
// rest of every record is left as ingested.
package reembed
