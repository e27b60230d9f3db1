// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fdt

import (
	"encoding/binary"
	"testing"
	"unsafe"
)

// stringTable accumulates property names, handing back each name's offset
// into the eventual FDT strings block (de-duplicated, mirroring how a real
// dtc-compiled blob reuses offsets for repeated names).
type stringTable struct {
	data    []byte
	offsets map[string]uint32
}

func newStringTable() *stringTable {
	return &stringTable{offsets: make(map[string]uint32)}
}

func (s *stringTable) offsetFor(name string) uint32 {
	if off, ok := s.offsets[name]; ok {
		return off
	}
	off := uint32(len(s.data))
	s.data = append(s.data, name...)
	s.data = append(s.data, 0)
	s.offsets[name] = off
	return off
}

type structBuilder struct {
	data []byte
	str  *stringTable
}

func (b *structBuilder) beginNode(name string) {
	b.putU32(tokenBeginNode)
	b.data = append(b.data, name...)
	b.data = append(b.data, 0)
	b.pad4()
}

func (b *structBuilder) endNode() {
	b.putU32(tokenEndNode)
}

func (b *structBuilder) prop(name string, value []byte) {
	b.putU32(tokenProp)
	b.putU32(uint32(len(value)))
	b.putU32(b.str.offsetFor(name))
	b.data = append(b.data, value...)
	b.pad4()
}

func (b *structBuilder) end() {
	b.putU32(tokenEnd)
}

func (b *structBuilder) putU32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.data = append(b.data, buf[:]...)
}

func (b *structBuilder) pad4() {
	for len(b.data)%4 != 0 {
		b.data = append(b.data, 0)
	}
}

func be64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func nulString(s string) []byte {
	return append([]byte(s), 0)
}

// buildTestBlob assembles a minimal but well-formed FDT blob: a root node
// with model/compatible, a /memory@0 node with one reg entry, and a /soc
// with a uart and a gpio child, enough to exercise every branch of
// handleProp.
func buildTestBlob(t *testing.T) []byte {
	t.Helper()

	str := newStringTable()
	sb := &structBuilder{str: str}

	sb.beginNode("")
	sb.prop("model", nulString("Test Board"))
	sb.prop("compatible", nulString("vendor,test-board"))

	sb.beginNode("memory@0")
	sb.prop("reg", append(be64(0), be64(512*1024*1024)...))
	sb.endNode()

	sb.beginNode("soc")
	sb.beginNode("uart@7e201000")
	sb.prop("reg", be64(0x7e201000))
	sb.endNode()

	sb.beginNode("gpio@7e200000")
	sb.prop("reg", be64(0x7e200000))
	sb.endNode()
	sb.endNode()

	sb.endNode()
	sb.end()

	const headerSize = 40

	offStruct := uint32(headerSize)
	offStrings := offStruct + uint32(len(sb.data))

	totalSize := offStrings + uint32(len(str.data))

	hdr := make([]byte, headerSize)
	binary.BigEndian.PutUint32(hdr[0:4], magic)
	binary.BigEndian.PutUint32(hdr[4:8], totalSize)
	binary.BigEndian.PutUint32(hdr[8:12], offStruct)
	binary.BigEndian.PutUint32(hdr[12:16], offStrings)

	blob := make([]byte, 0, totalSize)
	blob = append(blob, hdr...)
	blob = append(blob, sb.data...)
	blob = append(blob, str.data...)

	return blob
}

func TestParseValidBlobExtractsSummary(t *testing.T) {
	blob := buildTestBlob(t)
	addr := uintptr(unsafe.Pointer(&blob[0]))

	summary, err := Parse(addr)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if summary.Model != "Test Board" {
		t.Errorf("Model = %q, want %q", summary.Model, "Test Board")
	}

	if len(summary.Compatibles) != 1 || summary.Compatibles[0] != "vendor,test-board" {
		t.Errorf("Compatibles = %v, want [vendor,test-board]", summary.Compatibles)
	}

	if len(summary.MemoryRegions) != 1 || summary.MemoryRegions[0].Size != 512*1024*1024 {
		t.Fatalf("MemoryRegions = %v, want one 512 MiB region", summary.MemoryRegions)
	}

	if summary.Peripherals.UARTPL011 != 0x7e201000 {
		t.Errorf("UARTPL011 = 0x%x, want 0x7e201000", summary.Peripherals.UARTPL011)
	}

	if summary.Peripherals.GPIO != 0x7e200000 {
		t.Errorf("GPIO = 0x%x, want 0x7e200000", summary.Peripherals.GPIO)
	}

	if summary.Peripherals.MMIOStart != 0x7e200000 {
		t.Errorf("MMIOStart = 0x%x, want the lowest peripheral base 0x7e200000", summary.Peripherals.MMIOStart)
	}

	socNodes := summary.SocNodes()
	if len(socNodes) != 2 {
		t.Errorf("SocNodes = %v, want 2 entries", socNodes)
	}
}

func TestParseBadMagicReturnsError(t *testing.T) {
	blob := make([]byte, 40)
	binary.BigEndian.PutUint32(blob[0:4], 0xdeadbeef)

	addr := uintptr(unsafe.Pointer(&blob[0]))

	if _, err := Parse(addr); err != ErrBadMagic {
		t.Errorf("Parse with bad magic = %v, want ErrBadMagic", err)
	}
}

func TestFallbackProducesFlatRAMSummary(t *testing.T) {
	peripherals := Peripherals{UARTPL011: 0x7e201000}

	summary := Fallback(peripherals)

	if len(summary.MemoryRegions) != 1 || summary.MemoryRegions[0].Size != 512*1024*1024 {
		t.Fatalf("Fallback MemoryRegions = %v, want one 512 MiB region", summary.MemoryRegions)
	}

	if summary.Peripherals != peripherals {
		t.Errorf("Fallback did not carry through the given peripherals: %+v", summary.Peripherals)
	}
}
