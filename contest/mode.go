package contest

import (
	"fmt"
	"strings"
)

// Mode selects which half of the ballot paper is counted
type Mode int

const (
	// AboveTheLine counts group preferences
	AboveTheLine Mode = iota
	// BelowTheLine counts candidate preferences
	BelowTheLine
)

func (m Mode) String() string {
	if m == BelowTheLine {
		return "btl"
	}
	return "atl"
}

// ParseMode accepts "atl" or "btl" in any case
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "atl", "above":
		return AboveTheLine, nil
	case "btl", "below":
		return BelowTheLine, nil
	}
	return 0, fmt.Errorf("%w: %q (want atl or btl)", ErrInvalidMode, s)
}

// Set implements pflag.Value
func (m *Mode) Set(s string) error {
	v, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Type implements pflag.Value
func (m *Mode) Type() string {
	return "mode"
}
