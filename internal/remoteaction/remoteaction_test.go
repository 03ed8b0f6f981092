package remoteaction

import "testing"

func TestIsAllDigits(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected bool
	}{
		{name: "Plain PID", token: "12345", expected: true},
		{name: "Empty string", token: "", expected: false},
		{name: "Contains letters", token: "12a45", expected: false},
		{name: "Negative sign rejected", token: "-1", expected: false},
		{name: "Positive sign rejected", token: "+1", expected: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := isAllDigits(test.token)
			if got != test.expected {
				t.Errorf("expected %v but got %v", test.expected, got)
			}
		})
	}
}
