package reconcile

// Window is an inclusive primary key range.
type Window struct {
	Start int64
	End   int64
}

// Windows partitions [1, maxID] into consecutive inclusive ranges of width
// ids. The last range is clipped to maxID. It returns nil when maxID < 1 or
// width < 1.
func Windows(maxID, width int64) []Window {
	if maxID < 1 || width < 1 {
		return nil
	}
	count := (maxID + width - 1) / width
	out := make([]Window, 0, count)
	for start := int64(1); start <= maxID; start += width {
		end := start + width - 1
		if end > maxID {
			end = maxID
		}
		out = append(out, Window{Start: start, End: end})
	}
	return out
}
