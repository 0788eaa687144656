package buffer

import (
	"fmt"
	"sync"
	"testing"

	"conversation-ingress-service/internal/models"
)

func seg(text string) models.TranscriptSegment {
	return models.TranscriptSegment{Text: text, Source: models.SourceEdge}
}

func TestBuffer_DrainPreservesArrivalOrder(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		b.Enqueue(seg(fmt.Sprintf("segment-%d", i)))
	}

	batch := b.Drain()
	if len(batch) != 5 {
		t.Fatalf("expected 5 segments, got %d", len(batch))
	}
	for i, s := range batch {
		if s.Text != fmt.Sprintf("segment-%d", i) {
			t.Errorf("segment %d out of order: %q", i, s.Text)
		}
	}
}

func TestBuffer_EmptyDrainIsNoop(t *testing.T) {
	b := New()
	if batch := b.Drain(); batch != nil {
		t.Errorf("expected nil batch from empty buffer, got %v", batch)
	}
	if b.Len() != 0 {
		t.Errorf("expected empty buffer, got len %d", b.Len())
	}
}

func TestBuffer_NoLossAcrossConcurrentFlushes(t *testing.T) {
	b := New()

	const producers = 4
	const perProducer = 500

	var producersWG sync.WaitGroup
	var drainedMu sync.Mutex
	var drainedSegs []models.TranscriptSegment
	stop := make(chan struct{})
	drainerDone := make(chan struct{})

	// Drain loop racing against producers, like the session flush timer.
	go func() {
		defer close(drainerDone)
		for {
			batch := b.Drain()
			drainedMu.Lock()
			drainedSegs = append(drainedSegs, batch...)
			drainedMu.Unlock()
			select {
			case <-stop:
				// Final flush.
				batch := b.Drain()
				drainedMu.Lock()
				drainedSegs = append(drainedSegs, batch...)
				drainedMu.Unlock()
				return
			default:
			}
		}
	}()

	for p := 0; p < producers; p++ {
		producersWG.Add(1)
		go func(p int) {
			defer producersWG.Done()
			for i := 0; i < perProducer; i++ {
				b.Enqueue(seg(fmt.Sprintf("p%d-%d", p, i)))
			}
		}(p)
	}

	producersWG.Wait()
	close(stop)
	<-drainerDone

	enqueued, drained := b.Counts()
	if enqueued != producers*perProducer {
		t.Fatalf("expected %d enqueued, got %d", producers*perProducer, enqueued)
	}

	drainedMu.Lock()
	total := len(drainedSegs)
	drainedMu.Unlock()
	if uint64(total) != drained {
		t.Fatalf("drained counter %d disagrees with collected %d", drained, total)
	}
	if total+b.Len() != producers*perProducer {
		t.Errorf("segments lost or duplicated: drained %d + pending %d != %d",
			total, b.Len(), producers*perProducer)
	}

	// Seen set: no duplicates.
	seen := make(map[string]bool, total)
	drainedMu.Lock()
	for _, s := range drainedSegs {
		if seen[s.Text] {
			t.Errorf("duplicate segment %q", s.Text)
		}
		seen[s.Text] = true
	}
	drainedMu.Unlock()
}
