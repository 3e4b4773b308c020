package dispatcher

import (
	"testing"

	"github.com/ryntric/affinity-dispatcher/api"
)

func TestHashProviders_Deterministic(t *testing.T) {
	for name, h := range map[string]api.HashCodeProvider{"xxhash": XXHash{}, "fnv1a": FNV1a{}} {
		t.Run(name, func(t *testing.T) {
			if h.HashString("customer-42") != h.HashString("customer-42") {
				t.Error("HashString is not deterministic")
			}
			if h.HashBytes([]byte("customer-42")) != h.HashString("customer-42") {
				t.Error("HashBytes and HashString disagree on the same key")
			}
			if h.HashInt32(7) != h.HashInt32(7) || h.HashInt64(7) != h.HashInt64(7) {
				t.Error("integer hashes are not deterministic")
			}
			if h.HashInt32(0) == h.HashInt32(1) {
				t.Error("HashInt32 collides on adjacent keys")
			}
			if h.HashInt64(0) == h.HashInt64(1) {
				t.Error("HashInt64 collides on adjacent keys")
			}
		})
	}
}

func TestHashProviders_KnownValues(t *testing.T) {
	// Folded digests of the empty key.
	if got := (XXHash{}).HashString(""); got != 0xbe9e32ae {
		t.Errorf("XXHash(\"\") = %#x, want 0xbe9e32ae", got)
	}
	if got := (FNV1a{}).HashString(""); got != 0x4fd0bfc1 {
		t.Errorf("FNV1a(\"\") = %#x, want 0x4fd0bfc1", got)
	}
}

func TestHashProviders_SmallIntegersUseHighBits(t *testing.T) {
	// The router scales by the high bits, so 0..255 must not all map to a
	// narrow band.
	var high [16]bool
	for i := int32(0); i < 256; i++ {
		high[XXHash{}.HashInt32(i)>>28] = true
	}
	for b, ok := range high {
		if !ok {
			t.Errorf("no key of 0..255 has top nibble %#x", b)
		}
	}
}
