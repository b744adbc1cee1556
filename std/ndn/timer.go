package ndn

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Timer provides the clock and nonces, so tests can control time.
type Timer interface {
	Now() time.Time
	// Nonce returns a random Interest nonce.
	Nonce() uint32
}

type SystemTimer struct{}

func NewTimer() Timer {
	return SystemTimer{}
}

func (SystemTimer) Now() time.Time {
	return time.Now()
}

func (SystemTimer) Nonce() uint32 {
	var buf [4]byte
	rand.Read(buf[:]) // never fails on supported platforms
	return binary.BigEndian.Uint32(buf[:])
}

// DummyTimer is a manually advanced clock with sequential nonces.
type DummyTimer struct {
	lock  sync.Mutex
	now   time.Time
	nonce uint32
}

func NewDummyTimer() *DummyTimer {
	return &DummyTimer{now: time.Unix(0, 0).UTC()}
}

func (tm *DummyTimer) Now() time.Time {
	tm.lock.Lock()
	defer tm.lock.Unlock()
	return tm.now
}

// MoveForward advances the clock by d.
func (tm *DummyTimer) MoveForward(d time.Duration) {
	tm.lock.Lock()
	defer tm.lock.Unlock()
	tm.now = tm.now.Add(d)
}

func (tm *DummyTimer) Nonce() uint32 {
	tm.lock.Lock()
	defer tm.lock.Unlock()
	tm.nonce++
	return tm.nonce
}
