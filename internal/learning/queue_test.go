package learning

import (
	"testing"

	"github.com/nvandessel/silicon/internal/models"
)

func TestDeferredQueue_DrainEmpties(t *testing.T) {
	q := NewDeferredQueue(4)
	q.Push(models.DeferredStdpEvent{Synapse: 1, DeltaWeight: 0.1})
	q.Push(models.DeferredStdpEvent{Synapse: 2, DeltaWeight: 0.2})

	got := q.Drain()
	if len(got) != 2 || got[0].Synapse != 1 || got[1].Synapse != 2 {
		t.Fatalf("Drain() = %+v, want synapses 1,2 in order", got)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after Drain, want 0", q.Len())
	}
	if again := q.Drain(); len(again) != 0 {
		t.Errorf("second Drain() = %v, want empty", again)
	}
}

func TestDeferredQueue_EvictsOldestWhenFull(t *testing.T) {
	q := NewDeferredQueue(3)
	for i := 1; i <= 5; i++ {
		q.Push(models.DeferredStdpEvent{Synapse: models.SynapseID(i)})
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", q.Dropped())
	}
	got := q.Drain()
	for i, want := range []models.SynapseID{3, 4, 5} {
		if got[i].Synapse != want {
			t.Errorf("Drain()[%d] = %v, want %v", i, got[i].Synapse, want)
		}
	}

	// Wrapped buffer still drains in order after reuse.
	q.Push(models.DeferredStdpEvent{Synapse: 6})
	if got := q.Drain(); len(got) != 1 || got[0].Synapse != 6 {
		t.Errorf("Drain() after reuse = %+v", got)
	}
}

func TestNewDeferredQueue_DefaultCapacity(t *testing.T) {
	if q := NewDeferredQueue(0); q.Cap() != DefaultQueueCapacity {
		t.Errorf("Cap() = %d, want %d", q.Cap(), DefaultQueueCapacity)
	}
}
