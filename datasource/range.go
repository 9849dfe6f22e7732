package datasource

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// LineFunc is called for each line of a byte range, with the offset of the
// line's first byte. The trailing line terminator is removed. Returning false
// stops the scan.
type LineFunc func(start int64, line string) (bool, error)

// ScanRange calls fn for each line of the file at path whose first byte lies
// within [offset, offset+length). A negative length means "to end of file".
func ScanRange(path string, offset int64, length int64, fn LineFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pos := offset
	if offset > 0 {
		// the byte before the range tells us whether the range starts on a record boundary
		if _, err := f.Seek(offset-1, io.SeekStart); err != nil {
			return err
		}
		pos = offset - 1
	}
	reader := bufio.NewReader(f)
	if offset > 0 {
		prev, err := reader.ReadByte()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		pos++
		if prev != '\n' {
			partial, err := reader.ReadString('\n')
			pos += int64(len(partial))
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
		}
	}

	for length < 0 || pos < offset+length {
		line, err := reader.ReadString('\n')
		if len(line) == 0 && err == io.EOF {
			return nil
		} else if err != nil && err != io.EOF {
			return err
		}
		start := pos
		pos += int64(len(line))
		more, ferr := fn(start, strings.TrimRight(line, "\r\n"))
		if ferr != nil {
			return ferr
		}
		if !more || err == io.EOF {
			return nil
		}
	}
	return nil
}

// ScanHead calls fn for each of the first n lines of the file at path
func ScanHead(path string, n int, fn LineFunc) error {
	seen := 0
	return ScanRange(path, 0, -1, func(start int64, line string) (bool, error) {
		if seen >= n {
			return false, nil
		}
		seen++
		return fn(start, line)
	})
}

// Split returns the byte range of a file of the given size which node nodeID
// (1-based) of numNodes should load. Every node gets size/numNodes bytes and
// the last node also takes the remainder.
func Split(size int64, nodeID int, numNodes int) (offset int64, length int64) {
	chunk := size / int64(numNodes)
	offset = chunk * int64(nodeID-1)
	length = chunk
	if nodeID == numNodes {
		length = size - offset
	}
	return offset, length
}
