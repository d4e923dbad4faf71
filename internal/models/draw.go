// Package models defines the core domain entities for the powerpick application.
// These models represent historical lottery draws, frequency rankings, and the
// generated pick batches served to clients.
//
// Terminology:
//   - Draw: one historical lottery result (five main numbers plus one special number).
//   - Pick: one generated suggestion, structurally identical to a draw.
//   - Batch: the set of picks produced by a single generation call.
package models

import (
	"fmt"
)

// ValidNumber reports whether n can appear on a lottery ball. Ball numbers start at 1.
func ValidNumber(n int) bool {
	return n >= 1
}

// DrawRecord represents one historical draw as read from the history source.
// Cells that could not be coerced to an integer are absent: Main only holds the
// parsed values (in column order) and Special is nil when its cell was malformed.
type DrawRecord struct {
	Main    []int `json:"main"`
	Special *int  `json:"special,omitempty"`
}

// HasSpecial reports whether the special-number cell was parsed.
func (d *DrawRecord) HasSpecial() bool {
	return d.Special != nil
}

// Validate checks that every number present in the record is a valid ball number.
func (d *DrawRecord) Validate() error {
	for _, n := range d.Main {
		if !ValidNumber(n) {
			return fmt.Errorf("invalid main number %d", n)
		}
	}
	if d.Special != nil && !ValidNumber(*d.Special) {
		return fmt.Errorf("invalid special number %d", *d.Special)
	}
	return nil
}

// Sanitized returns a copy of the record without invalid numbers, and how many were removed.
func (d DrawRecord) Sanitized() (DrawRecord, int) {
	removed := 0
	clean := DrawRecord{Main: make([]int, 0, len(d.Main))}
	for _, n := range d.Main {
		if ValidNumber(n) {
			clean.Main = append(clean.Main, n)
		} else {
			removed++
		}
	}
	if d.Special != nil {
		if ValidNumber(*d.Special) {
			special := *d.Special
			clean.Special = &special
		} else {
			removed++
		}
	}
	return clean, removed
}

// Frequency is one entry of a frequency ranking: how often Number was drawn.
type Frequency struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}
