// Package hostlist parses the fleet's host entries from config/ip.txt.
package hostlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load reads path line by line, skipping blank lines and lines beginning with '#'.
// Order of the returned hosts matches the file's declared order.
func Load(path string) (hosts []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open host list %s: %v", path, err)
		return
	}
	defer file.Close()

	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// De-duplicate, but keep first-seen order - a host listed twice is one worker, not two.
		if _, alreadyPresent := seen[line]; alreadyPresent {
			continue
		}
		seen[line] = struct{}{}

		hosts = append(hosts, line)
	}

	err = scanner.Err()
	if err != nil {
		err = fmt.Errorf("failed reading host list %s: %v", path, err)
		return
	}

	return
}
