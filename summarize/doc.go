// Package summarize turns stored records into language model summaries.
//
// SummarizeRecent synthesizes the newest records of a room into one digest.
// SummarizeRecords asks for a short review of each record, fanning the
// requests out over a worker pool. Every model call waits on a shared rate
// limiter so a burst of reviews cannot overwhelm a local inference server.
package summarize
