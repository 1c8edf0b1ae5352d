package problemgen

// Unseen returns the ids not present in seen, preserving order.
// Falls back to all ids when every one has been seen, so a small pool
// never starves the caller.
func Unseen(ids []uint32, seen map[uint32]bool) []uint32 {
	var out []uint32
	for _, id := range ids {
		if !seen[id] {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return ids
	}
	return out
}
