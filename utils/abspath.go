// Package utils regroups a few functions that can be useful, but don't deserve
// their own package.
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// AbsPath returns the cleaned absolute form of a path given on the command
// line or in a configuration file. A leading ~ is the home directory, and a
// leading $VAR is expanded from the environment.
func AbsPath(inPath string) (string, error) {
	switch {
	case inPath == "~" || strings.HasPrefix(inPath, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		inPath = home + inPath[1:]
	case strings.HasPrefix(inPath, "$"):
		end := strings.IndexRune(inPath, os.PathSeparator)
		if end < 0 {
			end = len(inPath)
		}
		name := inPath[1:end]
		value := os.Getenv(name)
		if name == "HOME" && value == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			value = home
		}
		inPath = value + inPath[end:]
	}
	return filepath.Abs(inPath)
}
