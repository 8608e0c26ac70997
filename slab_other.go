//go:build !linux
// +build !linux

package micbench

import (
	"os"
	"unsafe"
)

func allocSlab(sz int) ([]byte, error) {
	page := os.Getpagesize()
	raw := make([]byte, sz+page-1)
	shift := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) % uintptr(page)); rem != 0 {
		shift = page - rem
	}
	return raw[shift : shift+sz : shift+sz], nil
}

func freeSlab([]byte) error {
	return nil
}
