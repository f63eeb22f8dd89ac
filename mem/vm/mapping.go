package vm

// A Block is a chunk of input data together with its logical address.
type Block struct {
	Addr uint64
	Data []byte
}

// A Mapping lists blocks in the order their logical addresses were assigned.
type Mapping []Block

// Addrs returns the logical addresses in assignment order.
func (m Mapping) Addrs() []uint64 {
	addrs := make([]uint64, len(m))
	for i, b := range m {
		addrs[i] = b.Addr
	}

	return addrs
}
