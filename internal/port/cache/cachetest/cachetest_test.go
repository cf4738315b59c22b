package cachetest

import "testing"

func TestMemoryCompliance(t *testing.T) {
	RunCompliance(t, NewMemory(), nil)
}
