package partition

import "testing"

func TestSplitContiguousCoverage(t *testing.T) {
	items := make([]int, 10)
	for i := range items {
		items[i] = i
	}

	for _, workers := range []int{1, 2, 3, 4, 10, 16} {
		chunks := Split(items, workers)
		if len(chunks) > workers {
			t.Errorf("workers=%d: got %d chunks", workers, len(chunks))
		}
		var flat []int
		for _, chunk := range chunks {
			flat = append(flat, chunk...)
		}
		if len(flat) != len(items) {
			t.Fatalf("workers=%d: lost items, got %d", workers, len(flat))
		}
		for i, v := range flat {
			if v != i {
				t.Fatalf("workers=%d: chunks not contiguous at %d", workers, i)
			}
		}
	}
}

func TestSplitLastChunkAbsorbsRemainder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	chunks := Split(items, 2)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0])+len(chunks[1]) != len(items) {
		t.Fatalf("chunks lost items")
	}
	if chunks[1][len(chunks[1])-1] != "e" {
		t.Fatalf("last chunk must absorb the remainder")
	}
}

func TestSplitEmptyAndDegenerate(t *testing.T) {
	if chunks := Split([]int(nil), 4); chunks != nil {
		t.Fatalf("expected nil chunks for empty input, got %v", chunks)
	}
	chunks := Split([]int{1, 2, 3}, 0)
	if len(chunks) != 1 || len(chunks[0]) != 3 {
		t.Fatalf("non-positive worker count must collapse to one chunk, got %v", chunks)
	}
}
