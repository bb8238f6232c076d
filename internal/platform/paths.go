package platform

import (
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath normalizes a path for the current platform
func NormalizePath(p string) string {
	// Convert to platform-specific separators
	normalized := filepath.Clean(p)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(p, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(p string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(p, "\\\\") || strings.HasPrefix(p, "//")
}

// IsInside reports whether child is root itself or lies below it.
// Both paths must be absolute.
func IsInside(root, child string) bool {
	root = NormalizePath(root)
	child = NormalizePath(child)
	if root == child {
		return true
	}
	return strings.HasPrefix(child, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}

// CleanArchivePath turns an archive member name into a safe slash-separated
// relative path. Backslashes are treated as separators, drive letters and
// leading slashes are stripped, and ".." elements are dropped so the result
// can never escape the directory it is joined to.
func CleanArchivePath(name string) (string, error) {
	if name == "" {
		return "", &PathError{Path: name, Message: "path is empty"}
	}

	p := strings.ReplaceAll(name, "\\", "/")
	if len(p) >= 2 && p[1] == ':' {
		p = p[2:]
	}

	var parts []string
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".", "..":
			continue
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "", &PathError{Path: name, Message: "path has no usable elements"}
	}

	return path.Join(parts...), nil
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(p string) error {
	if p == "" {
		return &PathError{Path: p, Message: "path is empty"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(p, char) && !IsUNCPath(p) {
				return &PathError{Path: p, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
