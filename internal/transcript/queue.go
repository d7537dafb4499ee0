// Package transcript implements the bounded pending-transcript queue and
// the prompt-readiness-gated delivery/merge logic described in spec
// §4.7.
package transcript

import (
	"strings"

	"github.com/voxterm/voxterm/internal/voxmodel"
)

// MaxPendingTranscripts bounds the queue; push beyond this drops the
// oldest entry.
const MaxPendingTranscripts = 5

// Pending is one queued transcript awaiting delivery.
type Pending struct {
	Text   string
	Source voxmodel.VoiceCaptureSource
	Mode   voxmodel.SendMode
}

// Queue is a bounded FIFO of Pending transcripts.
type Queue struct {
	items []Pending
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Front() (Pending, bool) {
	if len(q.items) == 0 {
		return Pending{}, false
	}
	return q.items[0], true
}

// Push appends a transcript, dropping the oldest entry first if the
// queue is already at MaxPendingTranscripts. Returns true if a drop
// occurred.
func (q *Queue) Push(p Pending) (dropped bool) {
	if len(q.items) >= MaxPendingTranscripts {
		q.items = q.items[1:]
		dropped = true
	}
	q.items = append(q.items, p)
	return dropped
}

// popFront removes and returns the front entry.
func (q *Queue) popFront() (Pending, bool) {
	if len(q.items) == 0 {
		return Pending{}, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

// Batch is the result of merging consecutive same-mode queue entries.
type Batch struct {
	Text  string
	Label string
	Mode  voxmodel.SendMode
}

// MergePending batches consecutive front-of-queue entries that share the
// front entry's send mode, joining their trimmed non-empty text with a
// single space. The label is the common source label, or "Mixed
// pipelines" if sources differ. Returns false if nothing could be
// merged (queue empty, or all trimmed text was empty).
func MergePending(q *Queue) (Batch, bool) {
	front, ok := q.Front()
	if !ok {
		return Batch{}, false
	}
	mode := front.Mode

	var parts []string
	var sources []voxmodel.VoiceCaptureSource
	for {
		next, ok := q.Front()
		if !ok || next.Mode != mode {
			break
		}
		popped, _ := q.popFront()
		trimmed := strings.TrimSpace(popped.Text)
		if trimmed != "" {
			parts = append(parts, trimmed)
			sources = append(sources, popped.Source)
		}
	}
	if len(parts) == 0 {
		return Batch{}, false
	}

	label := sources[0].Label()
	for _, s := range sources[1:] {
		if s != sources[0] {
			label = "Mixed pipelines"
			break
		}
	}

	return Batch{Text: strings.Join(parts, " "), Label: label, Mode: mode}, true
}
