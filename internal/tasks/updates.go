package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ChunkStart Phase = iota
	ItemDone
	ItemFailed
	Throttled
	BatchDone
)

func (p Phase) String() string {
	switch p {
	case ChunkStart:
		return "chunk_start"
	case ItemDone:
		return "item_done"
	case ItemFailed:
		return "item_failed"
	case Throttled:
		return "throttled"
	case BatchDone:
		return "batch_done"
	default:
		return ""
	}
}

func chunkStartUpdate(step, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ChunkStart,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Processing items %d-%d of %d...", step, step+size-1, total),
	}
}

func itemDoneUpdate(step, total int, itemID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ItemDone,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, itemID),
	}
}

func itemFailedUpdate(step, total int, itemID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ItemFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, itemID, err),
	}
}

func throttledUpdate(step, total, concurrency int, delay time.Duration) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Throttled,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Sustained throttling, slowing down (concurrency %d, delay %s)", concurrency, delay),
	}
}

func batchDoneUpdate(succeeded, failed, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchDone,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Done: %d succeeded, %d failed", succeeded, failed),
	}
}
