package dump_test

import (
	"testing"

	"github.com/parityfs/parityfs/dump"
	"github.com/parityfs/parityfs/layout"
)

func sampleBlocks() [][]byte {
	blocks := make([][]byte, layout.TotalNumBlocks)
	for i := range blocks {
		b := make([]byte, layout.BlockSize)
		for j := range b {
			b[j] = byte((i*7 + j) % 251)
		}
		blocks[i] = b
	}
	return blocks
}

func TestFileNamePattern(t *testing.T) {
	uuid := []byte{0x12, 0x34, 0x56, 0x78}
	got := dump.FileName(uuid)
	want := "12345678_BS_128_NB_256_IS_16_MI_16.dump"
	if got != want {
		t.Fatalf("FileName = %q, want %q", got, want)
	}
}

func TestDumpLoadRoundTripNone(t *testing.T) {
	dir := t.TempDir()
	uuid := []byte{0xde, 0xad, 0xbe, 0xef}
	blocks := sampleBlocks()

	if err := dump.DumpToDisk(dir, uuid, blocks, "none"); err != nil {
		t.Fatalf("DumpToDisk: %v", err)
	}
	loaded, err := dump.LoadFromDisk(dir, uuid)
	if err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	if len(loaded) != len(blocks) {
		t.Fatalf("loaded %d blocks, want %d", len(loaded), len(blocks))
	}
	for i := range blocks {
		if string(loaded[i]) != string(blocks[i]) {
			t.Fatalf("block %d mismatch", i)
		}
	}
}

func TestDumpLoadRoundTripLZ4(t *testing.T) {
	dir := t.TempDir()
	uuid := []byte{0x01, 0x02, 0x03, 0x04}
	blocks := sampleBlocks()

	if err := dump.DumpToDisk(dir, uuid, blocks, dump.DefaultCodec); err != nil {
		t.Fatalf("DumpToDisk: %v", err)
	}
	loaded, err := dump.LoadFromDisk(dir, uuid)
	if err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	for i := range blocks {
		if string(loaded[i]) != string(blocks[i]) {
			t.Fatalf("block %d mismatch after lz4 round trip", i)
		}
	}
}

func TestDumpLoadRoundTripXZ(t *testing.T) {
	dir := t.TempDir()
	uuid := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	blocks := sampleBlocks()

	if err := dump.DumpToDisk(dir, uuid, blocks, "xz"); err != nil {
		t.Fatalf("DumpToDisk: %v", err)
	}
	loaded, err := dump.LoadFromDisk(dir, uuid)
	if err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	for i := range blocks {
		if string(loaded[i]) != string(blocks[i]) {
			t.Fatalf("block %d mismatch after xz round trip", i)
		}
	}
}

func TestDumpRejectsWrongBlockCount(t *testing.T) {
	dir := t.TempDir()
	uuid := []byte{0, 0, 0, 1}
	if err := dump.DumpToDisk(dir, uuid, sampleBlocks()[:layout.TotalNumBlocks-1], "none"); err == nil {
		t.Fatal("expected error for wrong block count")
	}
}

func TestLoadUnknownFileFails(t *testing.T) {
	dir := t.TempDir()
	if _, err := dump.LoadFromDisk(dir, []byte{9, 9, 9, 9}); err == nil {
		t.Fatal("expected error loading nonexistent dump")
	}
}
