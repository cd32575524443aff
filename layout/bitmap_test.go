package layout_test

import (
	"testing"

	"github.com/parityfs/parityfs/layout"
)

func TestFreeBitmapSetClear(t *testing.T) {
	bm := layout.NewFreeBitmap(layout.BlockSize)

	for _, i := range []int{0, 1, 5, layout.BlockSize - 1} {
		used, err := bm.IsUsed(i)
		if err != nil {
			t.Fatalf("IsUsed(%d): %v", i, err)
		}
		if used {
			t.Fatalf("entry %d should start free", i)
		}
	}

	if err := bm.Set(5); err != nil {
		t.Fatalf("Set(5): %v", err)
	}
	used, err := bm.IsUsed(5)
	if err != nil || !used {
		t.Fatalf("entry 5 should be used after Set, got used=%v err=%v", used, err)
	}

	if err := bm.Clear(5); err != nil {
		t.Fatalf("Clear(5): %v", err)
	}
	used, err = bm.IsUsed(5)
	if err != nil || used {
		t.Fatalf("entry 5 should be free after Clear, got used=%v err=%v", used, err)
	}
}

func TestFreeBitmapOutOfRange(t *testing.T) {
	bm := layout.NewFreeBitmap(4)
	if _, err := bm.IsUsed(4); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if err := bm.Set(-1); err == nil {
		t.Fatal("expected out-of-range error for negative index")
	}
}

func TestBitmapBlockForEntry(t *testing.T) {
	block, offset := layout.BitmapBlockForEntry(0)
	if block != layout.FreeBitmapBlockOffset || offset != 0 {
		t.Fatalf("entry 0: got block=%d offset=%d", block, offset)
	}

	block, offset = layout.BitmapBlockForEntry(layout.BlockSize + 3)
	if block != layout.FreeBitmapBlockOffset+1 || offset != 3 {
		t.Fatalf("entry BlockSize+3: got block=%d offset=%d", block, offset)
	}
}

func TestFreeBitmapFromBytesRoundTrip(t *testing.T) {
	raw := make([]byte, layout.BlockSize)
	raw[10] = 1
	bm := layout.FreeBitmapFromBytes(raw)
	used, err := bm.IsUsed(10)
	if err != nil || !used {
		t.Fatalf("expected entry 10 used, got used=%v err=%v", used, err)
	}
	out := bm.ToBytes()
	if len(out) != layout.BlockSize || out[10] != 1 {
		t.Fatalf("round trip mismatch: %v", out[:12])
	}
}
