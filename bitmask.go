package jotai

// MaxProperties is the number of properties a World can hold, across all
// categories.
const MaxProperties = 256

// propertyMask is a set of up to 256 property IDs. It serves as the visited
// set of a cascade and as the set of properties named by a spawn list.
type propertyMask [4]uint64

// set enables the bit for the given property.
func (m *propertyMask) set(bit PropertyID) {
	i := bit >> 6 // (bit / 64) to find the uint64 index
	o := bit & 63 // (bit % 64) to find the bit offset
	m[i] |= uint64(1) << uint64(o)
}

// containsBit checks if a specific bit is set in the mask.
func (m propertyMask) containsBit(bit PropertyID) bool {
	i := bit >> 6
	o := bit & 63
	return (m[i] & (uint64(1) << uint64(o))) != 0
}
