package auth

import "fmt"

// Slot identifies one of the two independent tenant authentication contexts.
// The source tenant is scanned for resources; the target (gameboard) tenant
// is deployed to. Each slot is authenticated fully independently.
type Slot string

const (
	// SlotSource is the tenant skymap discovers resources from.
	SlotSource Slot = "source"

	// SlotTarget is the gameboard tenant skymap deploys to.
	SlotTarget Slot = "target"
)

// Slots returns both slots in a fixed order.
func Slots() []Slot {
	return []Slot{SlotSource, SlotTarget}
}

// Valid reports whether s is one of the two known slots.
func (s Slot) Valid() bool {
	return s == SlotSource || s == SlotTarget
}

// String returns the slot name.
func (s Slot) String() string {
	return string(s)
}

// ParseSlot converts a user-supplied slot name into a Slot.
// Unrecognized values return an error, never a crash downstream.
func ParseSlot(name string) (Slot, error) {
	switch Slot(name) {
	case SlotSource:
		return SlotSource, nil
	case SlotTarget:
		return SlotTarget, nil
	default:
		return "", fmt.Errorf("unknown slot %q (expected %q or %q)", name, SlotSource, SlotTarget)
	}
}
