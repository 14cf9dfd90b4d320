package links

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrInputNotFound is returned when the links file does not exist.
var ErrInputNotFound = errors.New("input file not found")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads one link per line from path.
// Lines are trimmed, blank lines are skipped and a leading UTF-8 BOM is ignored.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads links from r using the same rules as Load.
func Parse(r io.Reader) ([]string, error) {
	var links []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if first {
			line = bytes.TrimPrefix(line, utf8BOM)
			first = false
		}
		if link := strings.TrimSpace(string(line)); link != "" {
			links = append(links, link)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}

	return links, nil
}
