package ring

// The slot ring and the NIC descriptor ring use independent index spaces
// that refer to the same logical position modulo a fixed offset. The offset
// is recomputed at every ring reset (the NIC ring restarts at 0 while the
// slot ring keeps its position) and is opaque everywhere else.

// NICToUser translates a NIC ring index into the slot ring index space.
// hwofs must be < n.
func NICToUser(nic, hwofs, n uint32) uint32 {
	return (nic + hwofs) % n
}

// UserToNIC translates a slot ring index into the NIC ring index space.
// hwofs must be < n.
func UserToNIC(user, hwofs, n uint32) uint32 {
	return (user + n - hwofs) % n
}

// Next returns the ring index after i on a ring with last index lim.
func Next(i, lim uint32) uint32 {
	if i == lim {
		return 0
	}
	return i + 1
}

// Prev returns the ring index before i on a ring with last index lim.
func Prev(i, lim uint32) uint32 {
	if i == 0 {
		return lim
	}
	return i - 1
}
