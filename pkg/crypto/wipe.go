package crypto

import "runtime"

// Wipe overwrites sensitive data with zeros. Nil and empty slices are
// ignored.
func Wipe(data []byte) {
	if len(data) == 0 {
		return
	}
	clear(data)
	runtime.KeepAlive(data)
}

// WipeAll wipes every slice in order.
func WipeAll(data ...[]byte) {
	for _, d := range data {
		Wipe(d)
	}
}
