// Package repository reads restaurant configuration from MySQL.  Handlers
// and workers compare against the sentinels below with errors.Is.
package repository

import "errors"

// ErrSlotNotFound is returned by SlotRepo.GetByID when no row matches.
var ErrSlotNotFound = errors.New("slot not found")
