// Package fileutil holds filesystem helpers for cover art.
package fileutil

import (
	"os"
	"strings"
)

var filenameReplacer = strings.NewReplacer(
	":", " -",
	"/", "-",
	"\\", "-",
	"?", "",
	"*", "",
	"\"", "'",
	"<", "",
	">", "",
	"|", "-",
)

// SanitizeFilename cleans a filename by replacing problematic characters
func SanitizeFilename(name string) string {
	name = filenameReplacer.Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// FileExists checks if a file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
