// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fdt parses the firmware-provided Flattened Device Tree blob into a
// Summary the rest of the kernel can consume without re-walking the tree.
package fdt

import (
	"encoding/binary"
	"errors"
	"strings"
	"unsafe"
)

const magic = 0xd00dfeed

const (
	tokenBeginNode = 0x1
	tokenEndNode   = 0x2
	tokenProp      = 0x3
	tokenNop       = 0x4
	tokenEnd       = 0x9
)

// RAMRegion is one memory bank reported by firmware.
type RAMRegion struct {
	Start uint64
	Size  uint64
}

// Peripherals collects the MMIO bases the board driver selector and GIC
// controller need.
type Peripherals struct {
	MMIOStart        uint64
	UARTPL011        uint64
	GPIO             uint64
	SPI0             uint64
	GICDistributor   uint64
	GICRedistributor uint64
	LocalINTC        uint64
}

// Summary is the immutable record produced once at boot by Parse or
// Fallback. It is never mutated afterwards.
type Summary struct {
	Model         string
	Compatibles   []string
	MemoryRegions []RAMRegion
	Peripherals   Peripherals
	somaticNodes  []string // SoC child node names collected while walking, debug only
}

// SocNodes returns the child node names collected under /soc, for debug
// logging only.
func (s Summary) SocNodes() []string {
	return s.somaticNodes
}

// ErrBadMagic is returned by Parse when the blob does not start with the FDT
// magic number.
var ErrBadMagic = errors.New("fdt: bad magic")

// Fallback returns a hard-coded summary sufficient to boot a board with
// 512 MiB of flat RAM when no valid DTB is found, per the failure semantics
// in section 4.12.
func Fallback(peripherals Peripherals) Summary {
	return Summary{
		Model:       "unknown (no DTB, fallback)",
		Compatibles: []string{"fallback"},
		MemoryRegions: []RAMRegion{
			{Start: 0, Size: 512 * 1024 * 1024},
		},
		Peripherals: peripherals,
	}
}

// Parse reads the FDT blob located at physical address addr, walking root,
// /cpus, /memory*, /soc/*, and /chosen, and returns the resulting Summary.
//
// addr must point at readable memory (identity-mapped or pre-MMU). The
// maximum blob size it will read is bounded by the header's totalsize field.
func Parse(addr uintptr) (Summary, error) {
	hdr := (*[40]byte)(unsafe.Pointer(addr))

	if binary.BigEndian.Uint32(hdr[0:4]) != magic {
		return Summary{}, ErrBadMagic
	}

	totalSize := binary.BigEndian.Uint32(hdr[4:8])
	offStruct := binary.BigEndian.Uint32(hdr[8:12])
	offStrings := binary.BigEndian.Uint32(hdr[12:16])

	blob := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(totalSize))

	w := &walker{
		blob:    blob,
		strings: blob[offStrings:],
		pos:     offStruct,
	}

	s := Summary{}
	w.walkRoot(&s)

	return s, nil
}

type walker struct {
	blob    []byte
	strings []byte
	pos     uint32
}

func (w *walker) u32() uint32 {
	v := binary.BigEndian.Uint32(w.blob[w.pos:])
	w.pos += 4
	return v
}

func (w *walker) propName(nameoff uint32) string {
	end := nameoff
	for end < uint32(len(w.strings)) && w.strings[end] != 0 {
		end++
	}
	return string(w.strings[nameoff:end])
}

func (w *walker) propData(length uint32) []byte {
	data := w.blob[w.pos : w.pos+length]
	w.pos += (length + 3) &^ 3
	return data
}

// walkRoot descends the structure block, dispatching property handling by
// the current node path. It is intentionally shallow: the kernel only needs
// model/compatible/reg values, not a general-purpose tree representation.
func (w *walker) walkRoot(s *Summary) {
	var path []string

	for {
		tok := w.u32()

		switch tok {
		case tokenBeginNode:
			name := w.cstr()
			path = append(path, name)

		case tokenEndNode:
			if len(path) > 0 {
				path = path[:len(path)-1]
			}

		case tokenProp:
			length := w.u32()
			nameoff := w.u32()
			name := w.propName(nameoff)
			data := w.propData(length)
			w.handleProp(s, path, name, data)

		case tokenNop:
			// no-op token, nothing to do

		case tokenEnd:
			return

		default:
			return
		}
	}
}

func (w *walker) cstr() string {
	start := w.pos
	for w.blob[w.pos] != 0 {
		w.pos++
	}
	s := string(w.blob[start:w.pos])
	w.pos++
	w.pos = (w.pos + 3) &^ 3
	return s
}

func (w *walker) handleProp(s *Summary, path []string, name string, data []byte) {
	cur := ""
	if len(path) > 0 {
		cur = path[len(path)-1]
	}

	switch {
	case len(path) == 1 && name == "model":
		s.Model = trimNulString(data)

	case len(path) == 1 && name == "compatible":
		s.Compatibles = splitNulStrings(data)

	case strings.HasPrefix(cur, "memory") && name == "reg":
		for off := 0; off+16 <= len(data); off += 16 {
			start := binary.BigEndian.Uint64(data[off : off+8])
			size := binary.BigEndian.Uint64(data[off+8 : off+16])
			s.MemoryRegions = append(s.MemoryRegions, RAMRegion{Start: start, Size: size})
		}
	}

	// /soc/* children are recorded by name as soon as any of their
	// properties is seen, independently of the switch above: a child's
	// "reg" prop both names it and, for recognized peripherals, feeds
	// assignPeripheral.
	if len(path) >= 2 && path[len(path)-2] == "soc" {
		s.somaticNodes = appendUnique(s.somaticNodes, cur)

		if name == "reg" && len(data) >= 8 {
			addr := binary.BigEndian.Uint64(padTo8(data))
			assignPeripheral(&s.Peripherals, cur, addr)
		}
	}
}

func assignPeripheral(p *Peripherals, nodeName string, addr uint64) {
	switch {
	case strings.Contains(nodeName, "uart") || strings.Contains(nodeName, "serial"):
		p.UARTPL011 = addr
	case strings.Contains(nodeName, "gpio"):
		p.GPIO = addr
	case strings.Contains(nodeName, "spi"):
		p.SPI0 = addr
	case strings.Contains(nodeName, "intc") || strings.Contains(nodeName, "gic"):
		if p.GICDistributor == 0 {
			p.GICDistributor = addr
		} else if p.GICRedistributor == 0 {
			p.GICRedistributor = addr
		}
		p.LocalINTC = addr
	}

	if p.MMIOStart == 0 || addr < p.MMIOStart {
		p.MMIOStart = addr
	}
}

func trimNulString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func splitNulStrings(b []byte) []string {
	var out []string
	start := 0
	for i, c := range b {
		if c == 0 {
			if i > start {
				out = append(out, string(b[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func padTo8(data []byte) []byte {
	if len(data) >= 8 {
		return data[:8]
	}
	var buf [8]byte
	copy(buf[8-len(data):], data)
	return buf[:]
}
