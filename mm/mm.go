// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mm composes the page allocator and translation-table builder into
// the kernel's memory manager: one set of kernel tables, one physical-page
// free list, and a fixed number of user address spaces whose TTBR0 roots
// are published through UserTTBR0. The scheduler does not read them.
package mm

import (
	"fmt"

	"github.com/usbarmory/tamago-rpi/fdt"
	"github.com/usbarmory/tamago-rpi/mm/mmu"
	"github.com/usbarmory/tamago-rpi/mm/page"
)

const (
	// emergencyPoolBytes is the size of the always-available reserve of
	// physical pages, carved out right after the kernel image.
	emergencyPoolBytes = 10 * 1024 * 1024

	// defaultMMIOLength is the size each peripheral's identity mapping is
	// rounded up to, so adjacent peripherals collapse into shared windows.
	defaultMMIOLength = 0x0200_0000 // 32 MiB

	// UserAddressSpaceCount is the number of user translation-table sets
	// built at boot, one per round-robin user task slot.
	UserAddressSpaceCount = 3
)

// Summary is the read-only debug snapshot of the memory manager's state,
// published after Build for the console to print at boot.
type Summary struct {
	GranuleSize     int
	RAMRegions      []page.RAMRegion
	ReservedRegions []page.ReservedRegion
	KernelImage     struct{ Start, End uint64 }
	EmergencyPool   *page.ReservedRegion
	TotalFreeBytes  uint64
	MMIOBase        uint64
}

// Manager owns the kernel's physical-page allocator, kernel translation
// tables, and the fixed set of user address spaces.
type Manager struct {
	regions         []page.RAMRegion
	allocator       *page.Allocator
	kernelTables    *mmu.KernelTables
	userTables      [UserAddressSpaceCount]*mmu.KernelTables
	mmioBase        uint64
	kernelImageSpan struct{ Start, End uint64 }
	emergencyPool   *page.ReservedRegion
}

// Build assembles a Manager from an FDT summary and a kernel image span
// (start, end) of physical addresses to reserve ahead of general
// allocation. It maps every RAM region and a deduplicated set of
// peripheral MMIO windows into the kernel tables, then builds
// UserAddressSpaceCount user address spaces sharing the same RAM/MMIO
// layout under user-mode permissions.
func Build(summary fdt.Summary, kernelImageStart, kernelImageEnd uint64) (*Manager, []string) {
	var notes []string

	regions := collectRegions(summary)
	allocator := page.FromRegions(regions)

	kernelSize := kernelImageEnd - kernelImageStart
	allocator.ReserveSpan(kernelImageStart, kernelSize, page.KernelImage)

	emergencyPages := int((emergencyPoolBytes + page.Size - 1) / page.Size)
	var emergencyPool *page.ReservedRegion
	if region, ok := allocator.AllocateContiguous(emergencyPages, page.EmergencyPool); ok {
		emergencyPool = &region
	} else {
		notes = append(notes, fmt.Sprintf("WARNING: unable to reserve emergency pool of %d bytes", emergencyPoolBytes))
	}

	kernelTables := mmu.NewTables()
	mapRegions(kernelTables, regions, mmu.KernelReadWrite)

	windows := peripheralMMIOWindows(summary.Peripherals)
	for _, w := range windows {
		switch err := kernelTables.MapIdentity(w, defaultMMIOLength, mmu.Attrs{
			MemType:      mmu.Device,
			Shareability: mmu.InnerShareable,
			Access:       mmu.KernelReadWrite,
			ExecuteNever: true,
		}); err.(type) {
		case nil:
		case *mmu.AlreadyMappedError:
			notes = append(notes, fmt.Sprintf("skipping kernel MMIO window @ 0x%x (already mapped)", w))
		default:
			notes = append(notes, fmt.Sprintf("failed to map kernel MMIO window @ 0x%x: %v", w, err))
		}
	}

	m := &Manager{
		regions:       regions,
		allocator:     allocator,
		kernelTables:  kernelTables,
		mmioBase:      summary.Peripherals.MMIOStart,
		emergencyPool: emergencyPool,
	}
	m.kernelImageSpan.Start = kernelImageStart
	m.kernelImageSpan.End = kernelImageEnd

	for i := 0; i < UserAddressSpaceCount; i++ {
		tables := mmu.NewTables()
		mapRegions(tables, regions, mmu.UserReadWrite)

		for _, w := range windows {
			switch err := tables.MapIdentity(w, defaultMMIOLength, mmu.Attrs{
				MemType:      mmu.Device,
				Shareability: mmu.InnerShareable,
				Access:       mmu.UserReadWrite,
				ExecuteNever: true,
			}); err.(type) {
			case nil:
			case *mmu.AlreadyMappedError:
				notes = append(notes, fmt.Sprintf("skipping user MMIO window @ 0x%x (already mapped)", w))
			default:
				notes = append(notes, fmt.Sprintf("failed to map user MMIO window @ 0x%x: %v", w, err))
			}
		}

		m.userTables[i] = tables
	}

	return m, notes
}

func mapRegions(tables *mmu.KernelTables, regions []page.RAMRegion, access mmu.AccessPermissions) {
	for _, r := range regions {
		start := alignDown(r.Start)
		end := alignUp(r.End())

		if end <= start {
			continue
		}

		tables.MapIdentity(start, end-start, mmu.Attrs{
			MemType:      mmu.Normal,
			Shareability: mmu.InnerShareable,
			Access:       access,
		})
	}
}

// KernelTTBR1 returns the physical root address of the kernel tables, the
// value programmed into TTBR1_EL1 (and, per the deliberate TTBR0 handoff
// gap, TTBR0_EL1 too — see mmu.Enable).
func (m *Manager) KernelTTBR1() uint64 {
	return m.kernelTables.RootPhys()
}

// UserTTBR0 returns the physical root address of the slot-th user address
// space's tables, for the scheduler to read when a TTBR0 handoff is
// eventually wired in.
func (m *Manager) UserTTBR0(slot int) (uint64, bool) {
	if slot < 0 || slot >= UserAddressSpaceCount {
		return 0, false
	}
	return m.userTables[slot].RootPhys(), true
}

// TotalFreeBytes returns the physical-page allocator's remaining free bytes.
func (m *Manager) TotalFreeBytes() uint64 {
	return m.allocator.TotalFreeBytes()
}

// Translate resolves a kernel virtual address through the kernel tables,
// for debug identity checks at boot.
func (m *Manager) Translate(virt uint64) (uint64, bool) {
	return m.kernelTables.Translate(virt)
}

// DumpMapping renders the descriptor chain for virt through the kernel
// tables, for debug logging.
func (m *Manager) DumpMapping(virt uint64) string {
	return m.kernelTables.DumpMapping(virt)
}

// KernelTableFingerprint hashes the kernel translation tables into a short
// digest, for comparing two dump_mapping debug sessions at a glance.
func (m *Manager) KernelTableFingerprint() string {
	return m.kernelTables.Fingerprint()
}

// Snapshot returns the debug view of the manager's state.
func (m *Manager) Snapshot() Summary {
	s := Summary{
		GranuleSize:     page.Size,
		RAMRegions:      m.regions,
		ReservedRegions: m.allocator.ReservedRegions(),
		EmergencyPool:   m.emergencyPool,
		TotalFreeBytes:  m.allocator.TotalFreeBytes(),
		MMIOBase:        m.mmioBase,
	}
	s.KernelImage = m.kernelImageSpan
	return s
}

func collectRegions(summary fdt.Summary) []page.RAMRegion {
	if len(summary.MemoryRegions) == 0 {
		return []page.RAMRegion{{Start: 0, Size: 512 * 1024 * 1024}}
	}

	regions := make([]page.RAMRegion, len(summary.MemoryRegions))
	for i, r := range summary.MemoryRegions {
		regions[i] = page.RAMRegion{Start: r.Start, Size: r.Size}
	}
	return regions
}

// peripheralMMIOWindows aligns every non-zero peripheral base down to
// defaultMMIOLength, sorts, and drops duplicate windows; distinct windows,
// even adjacent ones, are all kept.
func peripheralMMIOWindows(p fdt.Peripherals) []uint64 {
	candidates := []uint64{
		p.MMIOStart,
		p.UARTPL011,
		p.GPIO,
		p.SPI0,
		p.GICDistributor,
		p.GICRedistributor,
		p.LocalINTC,
	}

	var aligned []uint64
	for _, addr := range candidates {
		if addr == 0 {
			continue
		}
		aligned = append(aligned, alignDownLen(addr, defaultMMIOLength))
	}

	sortUint64s(aligned)

	var windows []uint64
	for _, base := range aligned {
		if len(windows) > 0 && base < windows[len(windows)-1]+defaultMMIOLength {
			continue
		}
		windows = append(windows, base)
	}

	return windows
}

func sortUint64s(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func alignDown(v uint64) uint64 {
	return v &^ (page.Size - 1)
}

func alignUp(v uint64) uint64 {
	if v&(page.Size-1) == 0 {
		return v
	}
	return alignDown(v) + page.Size
}

func alignDownLen(v, length uint64) uint64 {
	return v &^ (length - 1)
}
