// Package partition splits slices into contiguous chunks for worker
// pools. Both pipeline stages and the file loader share it so every
// fan-out uses the same chunk arithmetic.
package partition

// Split divides items into n contiguous near-equal chunks. The last
// chunk absorbs the remainder. Empty chunks are dropped so callers never
// spawn a worker with no data.
func Split[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	if len(items) == 0 {
		return nil
	}

	size := len(items) / n
	if size == 0 {
		size = 1
	}

	chunks := make([][]T, 0, n)
	for start := 0; start < len(items); start += size {
		end := start + size
		if len(chunks) == n-1 || end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
		if end == len(items) {
			break
		}
	}
	return chunks
}
