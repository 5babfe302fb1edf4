// Package gesture classifies static hand poses from one frame's landmarks.
package gesture

import "fmt"

// Label identifies a recognized gesture. The zero value is None.
type Label string

const (
	// None means no gesture matched the frame.
	None Label = ""
	// Shenka is both hands raised with the wrists in the upper part of the frame.
	Shenka Label = "Shenka"
	// OK is the thumb tip touching the index fingertip.
	OK Label = "OK"
	// ThumbsUp is the thumb tip above the index fingertip.
	ThumbsUp Label = "ThumbsUp"
	// ThumbsDown is the thumb tip clearly below the index fingertip.
	ThumbsDown Label = "ThumbsDown"
)

// Labels returns the gesture vocabulary in evaluation priority order.
func Labels() []Label {
	return []Label{Shenka, OK, ThumbsUp, ThumbsDown}
}

// ParseLabel converts a string to a known, non-empty Label.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels() {
		if string(l) == s {
			return l, nil
		}
	}
	return None, fmt.Errorf("unknown gesture label %q", s)
}

// String returns the label name, or "None" for the zero value.
func (l Label) String() string {
	if l == None {
		return "None"
	}
	return string(l)
}
