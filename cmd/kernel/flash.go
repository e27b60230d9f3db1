// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !tamago
// +build !tamago

// Command kernel, built for the host instead of GOOS=tamago, writes a
// built kernel image to an SD card device node the way cmd/tamago shells
// out to host tools: a thin wrapper around the block device, not a
// bare-metal component.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/sys/unix"
)

func main() {
	log.SetFlags(0)

	image := flag.String("image", "", "path to the built kernel image")
	device := flag.String("device", "", "path to the SD card block device node")
	flag.Parse()

	if *image == "" || *device == "" {
		fmt.Fprintln(os.Stderr, "usage: kernel -image <path> -device </dev/sdX>")
		os.Exit(2)
	}

	if err := flashImage(*image, *device); err != nil {
		log.Fatalf("flash: %v", err)
	}

	fmt.Printf("flash: wrote %s to %s\n", *image, *device)
}

// flashImage writes image to device at offset 0x80000, the Raspberry Pi
// load address kernel images are expected to boot from, then flushes and
// fsyncs to make sure every written block has actually reached the card
// before returning.
func flashImage(imagePath, devicePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	fd, err := unix.Open(devicePath, unix.O_WRONLY|unix.O_SYNC, 0)
	if err != nil {
		return fmt.Errorf("opening device: %w", err)
	}
	defer unix.Close(fd)

	const loadOffset = 0x80000

	n, err := unix.Pwrite(fd, data, loadOffset)
	if err != nil {
		return fmt.Errorf("writing device: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(data))
	}

	if err := unix.Fsync(fd); err != nil {
		return fmt.Errorf("fsync device: %w", err)
	}

	return ioctlFlushBuffers(fd)
}

// ioctlFlushBuffers issues BLKFLSBUF so the kernel drops any cached blocks
// for device, forcing the next read back to come from the card rather
// than the page cache.
func ioctlFlushBuffers(fd int) error {
	const blkflsbuf = 0x1261

	if err := unix.IoctlSetInt(fd, blkflsbuf, 0); err != nil {
		if err == unix.ENOTTY || err == unix.EINVAL {
			// Not a block device (e.g. a plain file used in tests); nothing
			// to flush.
			return nil
		}
		return fmt.Errorf("flushing buffers: %w", err)
	}

	return nil
}
