package batch

import (
	"fmt"
	"path"
	"strings"

	"github.com/sdejongh/sigrename/pkg/models"
)

// Decide returns the action for a readable record and the name it asks
// for before collisions are resolved
func Decide(rec models.FileRecord, det models.DetectionResult) (models.Action, string) {
	switch {
	case !det.IsKnown():
		return models.ActionCopiedUnchanged, rec.Name
	case det.Matches(rec.Ext):
		return models.ActionLeftUnchanged, rec.Name
	default:
		return models.ActionRenamed, targetName(rec.Name, det.Ext)
	}
}

// targetName returns name with its extension replaced by ext, or with ext
// appended when name has none. Directory elements are preserved.
func targetName(name, ext string) string {
	old := models.ExtOf(name)
	return strings.TrimSuffix(name, old) + ext
}

// nameAllocator hands out output names that never collide with each other
// or with names reserved up front. Files and directories are tracked apart
// so a file never lands on a directory path or below another file.
// Comparison is case-insensitive so the output stays valid on
// case-insensitive filesystems.
type nameAllocator struct {
	files map[string]struct{}
	dirs  map[string]struct{}
}

func newNameAllocator(reserved ...string) *nameAllocator {
	a := &nameAllocator{
		files: make(map[string]struct{}),
		dirs:  make(map[string]struct{}),
	}
	for _, name := range reserved {
		a.reserve(name)
	}
	return a
}

// reserve marks name as a file and its parents as directories
func (a *nameAllocator) reserve(name string) {
	a.files[strings.ToLower(name)] = struct{}{}
	for _, dir := range dirsOf(name) {
		a.dirs[strings.ToLower(dir)] = struct{}{}
	}
}

// reserveDir marks name and its parents as directories
func (a *nameAllocator) reserveDir(name string) {
	for _, dir := range append(dirsOf(name), name) {
		a.dirs[strings.ToLower(dir)] = struct{}{}
	}
}

func (a *nameAllocator) isFile(name string) bool {
	_, ok := a.files[strings.ToLower(name)]
	return ok
}

func (a *nameAllocator) taken(name string) bool {
	_, dir := a.dirs[strings.ToLower(name)]
	return dir || a.isFile(name)
}

// alloc returns name, or name with a __N suffix before the extension of
// each element that clashes, and marks the result as used. A directory
// element clashes with a file of the same path, the last element with
// anything of the same path.
func (a *nameAllocator) alloc(name string) string {
	elems := strings.Split(name, "/")
	last := len(elems) - 1

	dir := ""
	for _, elem := range elems[:last] {
		cand := path.Join(dir, elem)
		if a.isFile(cand) {
			cand = suffixed(dir, elem, a.isFile)
		}
		dir = cand
	}

	cand := path.Join(dir, elems[last])
	if a.taken(cand) {
		cand = suffixed(dir, elems[last], a.taken)
	}
	a.reserve(cand)
	return cand
}

// suffixed returns the first dir/base__N.ext, from N=2, that is not busy
func suffixed(dir, elem string, busy func(string) bool) string {
	ext := models.ExtOf(elem)
	base := strings.TrimSuffix(elem, ext)

	for n := 2; ; n++ {
		cand := path.Join(dir, fmt.Sprintf("%s__%d%s", base, n, ext))
		if !busy(cand) {
			return cand
		}
	}
}

// dirsOf returns every parent directory of name, outermost first
func dirsOf(name string) []string {
	var dirs []string
	for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
		dirs = append([]string{dir}, dirs...)
	}
	return dirs
}
