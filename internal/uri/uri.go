// Package uri converts between file:// URIs and filesystem paths.
//
// The document store identifies documents by URI but resolves imports and
// build files through the filesystem, so both directions must round-trip.
// Only the file scheme is supported.
package uri

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// ErrNotFileURI is returned when a URI does not use the file scheme.
var ErrNotFileURI = errors.New("uri: not a file:// URI")

// FromPath converts an absolute filesystem path to a file:// URI.
// Windows drive letters are lowercased and the path separators normalized,
// matching how editors emit document URIs.
func FromPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		// Drive-letter path (c:/...) gets a leading slash in the URI.
		if len(p) >= 2 && p[1] == ':' {
			p = "/" + strings.ToLower(p[:1]) + p[1:]
		} else {
			p = "/" + p
		}
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// ToPath converts a file:// URI back to a filesystem path.
func ToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", ErrNotFileURI
	}
	p := u.Path
	// Strip the artificial leading slash in front of drive letters.
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return p, nil
}

// Resolve joins a relative import string onto a base document URI. The base
// is trimmed back to its last '/' and the import appended with URI-path
// semantics, collapsing "." and ".." segments.
func Resolve(base, rel string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", ErrNotFileURI
	}
	idx := strings.LastIndexByte(u.Path, '/')
	if idx < 0 {
		return "", ErrNotFileURI
	}
	u.Path = path.Join(u.Path[:idx+1], rel)
	return u.String(), nil
}
