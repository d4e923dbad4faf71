package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Pick is one generated suggestion: ascending main numbers plus a special number.
//
// On the wire a pick is the two-element array [[n1,n2,n3,n4,n5], special], which is
// the shape the web client has always consumed.
type Pick struct {
	Numbers []int
	Special int
}

// MarshalJSON encodes the pick as [numbers, special].
func (p Pick) MarshalJSON() ([]byte, error) {
	numbers := p.Numbers
	if numbers == nil {
		numbers = []int{}
	}
	return json.Marshal([]any{numbers, p.Special})
}

// Validate checks the pick invariants: the expected count of distinct ascending
// ball numbers with no two neighbours exactly one apart, plus a valid special number.
func (p *Pick) Validate(size int) error {
	if len(p.Numbers) != size {
		return fmt.Errorf("pick must have %d numbers, got %d", size, len(p.Numbers))
	}
	if !ValidNumber(p.Special) {
		return fmt.Errorf("invalid special number %d", p.Special)
	}
	if size > 0 && !ValidNumber(p.Numbers[0]) {
		return fmt.Errorf("invalid main number %d", p.Numbers[0])
	}
	for i := 1; i < len(p.Numbers); i++ {
		diff := p.Numbers[i] - p.Numbers[i-1]
		if diff <= 0 {
			return errors.New("pick numbers must be distinct and ascending")
		}
		if diff == 1 {
			return fmt.Errorf("pick contains consecutive numbers %d and %d", p.Numbers[i-1], p.Numbers[i])
		}
	}
	return nil
}

// Batch is the result of one generation call.
type Batch struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Picks       []Pick    `json:"picks"`
	Draws       int       `json:"draws"` // history rows the batch was computed from
}

// Validate checks that the batch has an ID and every pick is well formed.
func (b *Batch) Validate(picks, size int) error {
	if b.ID == "" {
		return errors.New("batch ID must not be empty")
	}
	if len(b.Picks) != picks {
		return fmt.Errorf("batch must have %d picks, got %d", picks, len(b.Picks))
	}
	for i := range b.Picks {
		if err := b.Picks[i].Validate(size); err != nil {
			return fmt.Errorf("pick %d: %w", i, err)
		}
	}
	if b.GeneratedAt.After(time.Now()) {
		return errors.New("generated at must not be in the future")
	}
	return nil
}
