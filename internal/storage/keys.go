package storage

import (
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// SanitizeKey normalizes a client-supplied object key: no leading slashes,
// forward slashes only, no empty path segments.
func SanitizeKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	key = strings.ReplaceAll(key, "\\", "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}

// NormalizeFolderPrefix turns a folder path into the prefix form used for
// markers and scoped listings: sanitized and ending with exactly one "/".
func NormalizeFolderPrefix(p string) string {
	p = SanitizeKey(p)
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// isFolderMarker reports whether a listed key is the zero-byte marker object
// that emulates a folder. Markers are skipped when building listing pages.
func isFolderMarker(key string, size int64) bool {
	return strings.HasSuffix(key, "/") && size == 0
}

// displayName derives the name shown for a key listed under prefix:
// the remainder after the prefix, without any trailing slash.
func displayName(key, prefix string) string {
	name := strings.TrimPrefix(key, prefix)
	name = strings.TrimSuffix(name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// objectID derives the stable, display-only list key for an object. It is a
// name-based UUID over the object path plus a change discriminator (ETag for
// files, nothing for synthetic folders) so re-listings keep stable ids.
func objectID(key, discriminator string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key+"\x00"+discriminator)).String()
}

// contentTypeForKey infers a MIME type from the key's extension. Listing has
// no object bytes to sniff, so this is extension-only; unknown extensions
// fall back to application/octet-stream.
func contentTypeForKey(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
