// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cpu

import "fmt"

// psciCPUOn is the PSCI function identifier for CPU_ON (32-bit calling
// convention, SMC64 not required for this kernel's target).
const psciCPUOn = 0x84000003

// defined in psci.s
func psciCall(functionID uint32, arg0, arg1, arg2 uint64) uint64

// QEMUPSCIReleaser brings up secondary cores by asking PSCI firmware
// (`smc #0`) to run CPU_ON, the mechanism QEMU's `virt` machine expects in
// place of the Raspberry Pi mailbox spin table.
type QEMUPSCIReleaser struct{}

// ReleaseCore asks PSCI to start core (used directly as the target MPIDR,
// valid for QEMU's single-cluster virt topology) at entry. Core 0 is always
// running and is a no-op.
func (QEMUPSCIReleaser) ReleaseCore(core int, entry uintptr) error {
	if core <= 0 {
		return nil
	}

	if rc := psciCall(psciCPUOn, uint64(core), uint64(entry), 0); rc != 0 {
		return fmt.Errorf("cpu: PSCI CPU_ON for core %d failed with error %d", core, int32(rc))
	}

	return nil
}
