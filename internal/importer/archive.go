package importer

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/erazemk/turtlealbum/internal/codesort"
)

// imageExts are the file types picked up from an image folder. HEIC is
// listed so such files are reported instead of silently ignored.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true,
}

type folder struct {
	path  string
	name  string
	files []*zip.File
}

// Archive is a validated image ZIP, indexed by folder.
type Archive struct {
	folders  []*folder
	maxBytes int64
}

// OpenArchive validates the ZIP in r against limits before anything is read:
// entry count, total uncompressed size and unsafe entry names.
func OpenArchive(r io.ReaderAt, size int64, limits Limits) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return nil, fmt.Errorf("reading zip: %w", err)
	}

	if len(zr.File) > limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d entries, limit %d", ErrZipTooManyFiles, len(zr.File), limits.MaxFiles)
	}
	var total uint64
	for _, f := range zr.File {
		total += f.UncompressedSize64
		if total > uint64(limits.MaxBytes) {
			return nil, fmt.Errorf("%w: more than %d bytes uncompressed", ErrZipTooLarge, limits.MaxBytes)
		}
		if unsafeName(f.Name) {
			return nil, fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
		}
	}

	byPath := map[string]*folder{}
	ensure := func(p string) *folder {
		if fo, ok := byPath[p]; ok {
			return fo
		}
		fo := &folder{path: p, name: path.Base(p)}
		byPath[p] = fo
		return fo
	}

	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasSuffix(name, "/") {
			if p := strings.TrimSuffix(name, "/"); p != "" && !hidden(p) {
				ensure(p)
			}
			continue
		}
		dir := path.Dir(name)
		if dir == "." || hidden(name) {
			continue
		}
		// Parent folders count for similar-name hints even without files.
		for p := dir; p != "." && p != "/"; p = path.Dir(p) {
			ensure(p)
		}
		if imageExts[strings.ToLower(path.Ext(name))] {
			fo := byPath[dir]
			fo.files = append(fo.files, f)
		}
	}

	a := &Archive{maxBytes: limits.MaxBytes}
	for _, fo := range byPath {
		sort.Slice(fo.files, func(i, j int) bool { return fo.files[i].Name < fo.files[j].Name })
		a.folders = append(a.folders, fo)
	}
	sort.Slice(a.folders, func(i, j int) bool { return a.folders[i].path < a.folders[j].path })
	return a, nil
}

// unsafeName rejects absolute paths, drive letters and parent references.
func unsafeName(name string) bool {
	n := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(n, "/") {
		return true
	}
	if len(n) >= 2 && n[1] == ':' {
		return true
	}
	for _, part := range strings.Split(n, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// hidden skips macOS resource forks and dotfiles.
func hidden(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == "__MACOSX" || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// find returns the first folder, in path order, named code ignoring case
// or equal to it after normalisation.
func (a *Archive) find(code string) *folder {
	lower := strings.ToLower(strings.TrimSpace(code))
	norm := normalizeCode(code)
	for _, fo := range a.folders {
		if strings.ToLower(fo.name) == lower || normalizeCode(fo.name) == norm {
			return fo
		}
	}
	return nil
}

// similar lists, in natural code order, up to three folder names that
// contain the normalised code or are contained in it.
func (a *Archive) similar(code string) []string {
	norm := normalizeCode(code)
	var out []string
	for _, fo := range a.folders {
		n := normalizeCode(fo.name)
		if strings.Contains(n, norm) || strings.Contains(norm, n) {
			out = append(out, fo.name)
		}
	}
	out = codesort.SortCodes(out)
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// open returns the content of f, refusing to read past the archive limit
// even if the entry header understates its size.
func (a *Archive) open(f *zip.File) (io.ReadCloser, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(rc, a.maxBytes), rc}, nil
}

// normalizeCode lowercases a code and strips leading zeros from its number:
// O01 and o1 match, F-001 and f-1 match, 001 and 1 match.
func normalizeCode(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))

	i := 0
	for i < len(c) && c[i] >= 'a' && c[i] <= 'z' {
		i++
	}
	prefix := c[:i]
	rest := c[i:]
	sep := ""
	if prefix != "" && rest != "" && (rest[0] == '-' || rest[0] == '_') {
		sep, rest = rest[:1], rest[1:]
	}
	if !allDigits(rest) {
		return c
	}
	digits := strings.TrimLeft(rest, "0")
	if digits == "" {
		digits = "0"
	}
	return prefix + sep + digits
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
