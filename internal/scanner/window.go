package scanner

// Window is an inclusive block range.
type Window struct {
	From uint64
	To   uint64
}

// SplitWindows slices [from, to] into contiguous windows of at most span blocks.
// It returns nil when from > to. A zero span is treated as one block.
func SplitWindows(from, to, span uint64) []Window {
	if from > to {
		return nil
	}
	if span == 0 {
		span = 1
	}

	var out []Window
	for start := from; ; {
		end := to
		if to-start >= span {
			end = start + span - 1
		}

		out = append(out, Window{From: start, To: end})
		if end == to {
			return out
		}
		start = end + 1
	}
}
