package csvstore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"grocery-store/internal/repository"
)

const maxLineSize = 1 << 20

// readLines returns the lines of path without terminators. A missing file
// reads as empty so a first run starts with empty stores.
func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &repository.StorageError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, &repository.StorageError{Op: "read", Path: path, Err: err}
	}
	return lines, nil
}

// writeLines replaces path with lines through a temp file and rename, so a
// failed write leaves the previous content in place.
func writeLines(path string, lines []string) error {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &repository.StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &repository.StorageError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &repository.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &repository.StorageError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &repository.StorageError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// appendLine adds one line at the end of path, creating it if needed.
func appendLine(path, line string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &repository.StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &repository.StorageError{Op: "open", Path: path, Err: err}
	}
	if _, err := fmt.Fprintln(file, line); err != nil {
		file.Close()
		return &repository.StorageError{Op: "append", Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &repository.StorageError{Op: "close", Path: path, Err: err}
	}
	return nil
}
