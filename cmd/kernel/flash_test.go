// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !tamago
// +build !tamago

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFlashImageWritesAtLoadOffset(t *testing.T) {
	dir := t.TempDir()

	imagePath := filepath.Join(dir, "kernel.img")
	payload := []byte("fake kernel image bytes")
	if err := os.WriteFile(imagePath, payload, 0o644); err != nil {
		t.Fatalf("writing fixture image: %v", err)
	}

	devicePath := filepath.Join(dir, "device.img")
	if err := os.WriteFile(devicePath, make([]byte, 0x100000), 0o644); err != nil {
		t.Fatalf("creating fake device: %v", err)
	}

	if err := flashImage(imagePath, devicePath); err != nil {
		t.Fatalf("flashImage: %v", err)
	}

	got, err := os.ReadFile(devicePath)
	if err != nil {
		t.Fatalf("reading fake device: %v", err)
	}

	const loadOffset = 0x80000
	if string(got[loadOffset:loadOffset+len(payload)]) != string(payload) {
		t.Errorf("image bytes not found at load offset 0x%x", loadOffset)
	}

	for i, b := range got[:loadOffset] {
		if b != 0 {
			t.Fatalf("unexpected non-zero byte at offset %d before load offset", i)
		}
	}
}

func TestFlashImageMissingFileReturnsError(t *testing.T) {
	dir := t.TempDir()

	if err := flashImage(filepath.Join(dir, "missing.img"), filepath.Join(dir, "device.img")); err == nil {
		t.Fatal("expected an error for a missing image path")
	}
}
