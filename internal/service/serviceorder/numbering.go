package serviceorder

// NextNumber returns the number for a new order given the current maximum.
// An empty table starts at floor; otherwise max+1, never below floor.
func NextNumber(highest int64, found bool, floor int64) int64 {
	if !found {
		return floor
	}
	next := highest + 1
	if next < floor {
		return floor
	}
	return next
}
