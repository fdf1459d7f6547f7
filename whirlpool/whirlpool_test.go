package whirlpool

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func testWhirlpool(in, expect string, t *testing.T) {
	d := New()
	d.Write([]byte(in))
	got := hex.EncodeToString(d.Sum(nil))
	if got != expect {
		t.Errorf("Whirlpool(%q) is %s instead of %s", in, got, expect)
	}
}

func TestVectors(t *testing.T) {
	testWhirlpool("", "19fa61d75522a4669b44e39c1d2e1726c530232130d407f89afee0964997f7a7"+
		"3e83be698b288febcf88e3e03c4f0757ea8964e59b63d93708b138cc42a66eb3", t)
	testWhirlpool("abc", "4e2448a4c6f486bb16b6562c73b4020bf3043e3a731bce721ae1b303d97e6d4c"+
		"7181eebdb6c57e277d0e34957114cbd6c797fc9d95d8b582d225292076d4eef5", t)
	testWhirlpool("The quick brown fox jumps over the lazy dog",
		"b97de512e91e3828b40d2b0fdce9ceb3c4a71f9bea8d88e75c4fa854df36725f"+
			"d2b52eb6544edcacd6f8beddfea403cb55ae31f03ad62a5ef54e42ee82c3fb35", t)
}

func TestSbox(t *testing.T) {
	if sbox[0] != 0x18 || sbox[1] != 0x23 || sbox[2] != 0xc6 || sbox[3] != 0xe8 {
		t.Fatalf("S-box starts with %x", sbox[:4])
	}
	if table[0][0] != 0x18186018c07830d8 {
		t.Fatalf("table[0][0] is %x", table[0][0])
	}
}

func TestIncremental(t *testing.T) {
	msg := bytes.Repeat([]byte("whirlpool"), 50)
	d := New()
	d.Write(msg)
	want := d.Sum(nil)
	for split := 0; split < len(msg); split += 37 {
		d2 := New()
		d2.Write(msg[:split])
		d3 := d2.Clone()
		d2.Write(msg[split:])
		d3.Write(msg[split:])
		if !bytes.Equal(d2.Sum(nil), want) || !bytes.Equal(d3.Sum(nil), want) {
			t.Fatalf("split at %d gives a different digest", split)
		}
	}
	d.Reset()
	if !bytes.Equal(New().Sum(nil), d.Sum(nil)) {
		t.Fatalf("Reset() did not restore the initial state")
	}
}
