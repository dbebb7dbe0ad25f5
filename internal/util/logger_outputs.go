package util

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewConsoleOutput creates a human readable writer for terminals.
func NewConsoleOutput(writer io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        writer,
		TimeFormat: "2006/01/02 15:04:05",
	}
}

// NewFileOutput opens path for appending JSON log lines.
func NewFileOutput(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
