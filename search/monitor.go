package search

import "github.com/poiesic/scholarly/core"

// RecallMonitor provides hooks to observe the recall process.
// Implement this interface to track intermediate steps and results during search.
type RecallMonitor interface {
	Start(roomID, query string)
	AfterSemanticSearch(ids []string)
	AfterKeywordScan(scanned int, ids []string)
	SemanticAndKeywordHit(record *core.IngestionRecord)
	SemanticHit(record *core.IngestionRecord)
	KeywordHit(record *core.IngestionRecord)
	Finish(results []*core.SimilarityMatch)
}

// noopMonitor is a no-op implementation of RecallMonitor
type noopMonitor struct{}

var _ RecallMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                             {}
func (n *noopMonitor) AfterSemanticSearch(_ []string)                {}
func (n *noopMonitor) AfterKeywordScan(_ int, _ []string)            {}
func (n *noopMonitor) SemanticAndKeywordHit(_ *core.IngestionRecord) {}
func (n *noopMonitor) SemanticHit(_ *core.IngestionRecord)           {}
func (n *noopMonitor) KeywordHit(_ *core.IngestionRecord)            {}
func (n *noopMonitor) Finish(_ []*core.SimilarityMatch)              {}
