package hostlist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		expected []string
	}{
		{
			name:     "Basic hosts, comments and blanks skipped",
			contents: "10.0.0.1\n# comment\n\n10.0.0.2\n",
			expected: []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name:     "IPv6 host preserved without brackets",
			contents: "fde0::1\n",
			expected: []string{"fde0::1"},
		},
		{
			name:     "Duplicate host collapses to one worker",
			contents: "10.0.0.1\n10.0.0.1\n10.0.0.2\n",
			expected: []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name:     "Empty file yields no hosts",
			contents: "",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "ip.txt")
			if err := os.WriteFile(path, []byte(test.contents), 0o644); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}

			hosts, err := Load(path)
			if err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}
			if !reflect.DeepEqual(hosts, test.expected) {
				t.Errorf("expected %v but got %v", test.expected, hosts)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Errorf("expected error but got none")
	}
}
