// forge/pkg/ordering/move.go

// Package ordering provides the single reorder primitive shared by every ordered
// list in the rule models: event-filter blocks, string definitions and section order.
package ordering

// Move returns a copy of items with the element at from removed and reinserted at
// the current position of the element whose key equals target.
//
// The input slice is never modified. When from is out of range, the target key is
// not present, or from already holds the target, the result is an element-for-element
// copy of the input.
func Move[T any, K comparable](items []T, from int, target K, key func(T) K) []T {
	out := make([]T, len(items))
	copy(out, items)

	if from < 0 || from >= len(items) {
		return out
	}

	to := IndexOf(items, target, key)
	if to < 0 || to == from {
		return out
	}

	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}

// IndexOf returns the index of the first element whose key equals k, or -1.
func IndexOf[T any, K comparable](items []T, k K, key func(T) K) int {
	for i, item := range items {
		if key(item) == k {
			return i
		}
	}
	return -1
}

// Identity is the key function for lists whose elements are their own ids.
func Identity[T comparable](v T) T {
	return v
}
