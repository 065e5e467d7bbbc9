package types

import "fmt"

// Seed is one input unit consumable by the external tool, e.g. TestFoo.java.
type Seed struct {
	Name string `json:"name"` // file name without the seed suffix
	File string `json:"file"` // absolute or seeds-dir-relative file path
}

// TestCaseSlot is the destination folder of one materialized case.
type TestCaseSlot struct {
	Index int    `json:"index"` // 1-based, strictly increasing within a run
	Path  string `json:"path"`
}

// SlotName formats the folder name for a case index.
func SlotName(index int) string {
	return fmt.Sprintf("test_case_%04d", index)
}
