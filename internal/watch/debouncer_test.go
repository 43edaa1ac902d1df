package watch

import (
	"sort"
	"testing"
	"time"
)

func TestDebouncer(t *testing.T) {
	t.Run("collapses a burst into one batch", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		d.Add("root-1")
		d.Add("root-2")
		d.Add("root-1")

		select {
		case batch := <-d.Output():
			sort.Strings(batch)
			if len(batch) != 2 || batch[0] != "root-1" || batch[1] != "root-2" {
				t.Errorf("batch = %v, want [root-1 root-2]", batch)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no batch emitted")
		}

		// Nothing pending, so nothing further should arrive.
		select {
		case batch := <-d.Output():
			t.Errorf("unexpected second batch: %v", batch)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("activity resets the quiet period", func(t *testing.T) {
		d := NewDebouncer(60 * time.Millisecond)
		d.Add("root-1")
		time.Sleep(30 * time.Millisecond)
		d.Add("root-1")

		select {
		case <-d.Output():
			t.Fatal("batch emitted before the quiet period elapsed")
		case <-time.After(20 * time.Millisecond):
		}

		select {
		case batch := <-d.Output():
			if len(batch) != 1 || batch[0] != "root-1" {
				t.Errorf("batch = %v, want [root-1]", batch)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no batch emitted after quiet period")
		}
	})
}
