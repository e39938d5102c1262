package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadCoins reads one coin id per line. Blank lines and lines starting
// with # are skipped. A missing file yields an empty list.
func LoadCoins(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read coin list: %w", err)
	}
	defer f.Close()

	var coins []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		coins = append(coins, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read coin list: %w", err)
	}
	return coins, nil
}
