// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package lock provides a single-core interior-mutability wrapper.
//
// NullLock grants exclusive access to its contents for the duration of a
// closure but does not provide real mutual exclusion: there is no atomic
// compare-and-swap, no memory barrier beyond what the compiler already
// guarantees for a function call. Its correctness depends entirely on the
// design-level guarantee that every holder site runs on at most one core at
// a time (early boot, or state that is only ever touched by the boot core).
// Code that can run concurrently on more than one core must use an atomic
// primitive instead, as the scheduler package does for PCB claim flags.
package lock

// NullLock wraps a value of type T, exposing it only through With.
type NullLock[T any] struct {
	val T
}

// New returns a NullLock seeded with val.
func New[T any](val T) *NullLock[T] {
	return &NullLock[T]{val: val}
}

// With invokes fn with exclusive access to the wrapped value and returns
// whatever fn returns.
func (l *NullLock[T]) With(fn func(v *T)) {
	fn(&l.val)
}

// Get returns a copy of the wrapped value, skipping the closure when the
// caller only needs a snapshot.
func (l *NullLock[T]) Get() T {
	return l.val
}
