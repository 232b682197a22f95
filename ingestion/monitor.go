package ingestion

import "github.com/poiesic/scholarly/core"

// CycleMonitor provides hooks to observe a cycle.
// Hooks run on the cycle goroutine and must not block.
type CycleMonitor interface {
	CycleStarted(roomID string)
	CategoryListed(category core.Category, items int)
	ItemSkipped(item *core.CandidateItem)
	ItemStored(record *core.IngestionRecord)
	Failure(failure CategoryFailure)
	CycleFinished(report *CycleReport)
}

// noopMonitor is a no-op implementation of CycleMonitor
type noopMonitor struct{}

var _ CycleMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) CycleStarted(_ string)                 {}
func (n *noopMonitor) CategoryListed(_ core.Category, _ int) {}
func (n *noopMonitor) ItemSkipped(_ *core.CandidateItem)     {}
func (n *noopMonitor) ItemStored(_ *core.IngestionRecord)    {}
func (n *noopMonitor) Failure(_ CategoryFailure)             {}
func (n *noopMonitor) CycleFinished(_ *CycleReport)          {}
