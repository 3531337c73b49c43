package loader

import (
	"errors"
	"fmt"
)

// Sentinel errors for loader failures. Typed variants carry detail while
// staying matchable with errors.Is.
var (
	// ErrSlotOccupied is returned when loading into a held slot without
	// requesting replacement.
	ErrSlotOccupied = errors.New("plugin slot occupied")
)

// SlotOccupiedError reports which slot blocked a load.
type SlotOccupiedError struct {
	ID string
}

func (e *SlotOccupiedError) Error() string {
	return fmt.Sprintf("plugin slot %q is occupied (load with replace to swap)", e.ID)
}

// Is allows errors.Is(err, loader.ErrSlotOccupied).
func (e *SlotOccupiedError) Is(target error) bool {
	return target == ErrSlotOccupied
}
