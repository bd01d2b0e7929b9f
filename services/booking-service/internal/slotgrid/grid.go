package slotgrid

// Grid expands the half-open interval [start, end) into slot start
// times start, start+step, ... such that each slot's end stays within
// the interval. A trailing partial slot is dropped. start >= end is a
// normal empty result, not an error.
func Grid(start, end Clock, step int) []Clock {
	if step <= 0 || start >= end {
		return nil
	}
	n := int(end-start) / step
	if n == 0 {
		return nil
	}
	slots := make([]Clock, 0, n)
	for t := start; t+Clock(step) <= end; t += Clock(step) {
		slots = append(slots, t)
	}
	return slots
}

// Subtract returns the slots of grid not present in booked, preserving
// grid order.
func Subtract(grid []Clock, booked []Clock) []Clock {
	if len(grid) == 0 {
		return nil
	}
	taken := make(map[Clock]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	open := make([]Clock, 0, len(grid))
	for _, s := range grid {
		if _, ok := taken[s]; !ok {
			open = append(open, s)
		}
	}
	return open
}
