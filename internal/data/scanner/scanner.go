package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-metrobus/internal/util"
)

// FileScanner finds event log files under a directory
type FileScanner struct {
	baseDir string
	ext     string
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{
		baseDir: baseDir,
		ext:     ".jsonl",
	}
}

// Scan returns all .jsonl file paths under the base directory in lexical order.
// A missing directory yields no files.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	var files []string
	dirCount := 0

	util.LogDebug(fmt.Sprintf("Start scanning directory: %s", s.baseDir))

	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip file (error): %s - %v", path, err))
			return nil
		}
		if info.IsDir() {
			dirCount++
			return nil
		}
		if s.Matches(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, found %d event files",
		time.Since(start), dirCount, len(files)))

	return files, err
}

// Matches reports whether path is an event log file.
func (s *FileScanner) Matches(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), s.ext)
}
