package session

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to awaiting details", from: StateIdle, to: StateAwaitingDetails, expected: true},
		{name: "awaiting details back to idle", from: StateAwaitingDetails, to: StateIdle, expected: true},
		{name: "awaiting details to awaiting details invalid", from: StateAwaitingDetails, to: StateAwaitingDetails, expected: false},
		{name: "idle to idle allowed", from: StateIdle, to: StateIdle, expected: true},
		{name: "unknown state to awaiting details invalid", from: State("unknown"), to: StateAwaitingDetails, expected: false},
		{name: "any state to idle emergency", from: State("whatever"), to: StateIdle, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
