// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the process-wide registry of live secrets and the signal
// handling that guarantees they are wiped on interrupt. Sessions register
// their in-memory data key here so that SIGINT/SIGTERM cannot leave key
// material behind.
package secret

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Wiper is anything holding sensitive memory that can be zeroed.
type Wiper interface {
	Zero()
}

var (
	// Registry of live secrets for wipe-on-exit.
	liveMu sync.Mutex
	live   = make(map[uint64]Wiper)
	nextID uint64

	// Signal handler installed flag.
	signalHandlerInstalled bool
	signalHandlerMutex     sync.Mutex
)

// Register adds a Wiper to the wipe-on-exit registry and returns a handle
// for Unregister.
func Register(w Wiper) uint64 {
	liveMu.Lock()
	defer liveMu.Unlock()
	nextID++
	live[nextID] = w
	return nextID
}

// Unregister zeroes and removes a previously registered Wiper. Safe to call
// with an unknown handle.
func Unregister(id uint64) {
	liveMu.Lock()
	defer liveMu.Unlock()
	if w, ok := live[id]; ok {
		w.Zero()
		delete(live, id)
	}
}

// WipeAll zeroes every registered secret and clears the registry. Called on
// process shutdown and from the signal handler.
func WipeAll() {
	liveMu.Lock()
	defer liveMu.Unlock()
	for _, w := range live {
		w.Zero()
	}
	live = make(map[uint64]Wiper)
}

// InstallSignalHandler sets up signal handling so that registered secrets are
// wiped even if the program is interrupted. It's safe to call this multiple
// times - subsequent calls are ignored.
func InstallSignalHandler() {
	signalHandlerMutex.Lock()
	defer signalHandlerMutex.Unlock()

	if signalHandlerInstalled {
		return // Already installed
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		WipeAll()
		os.Exit(1)
	}()

	signalHandlerInstalled = true
}
