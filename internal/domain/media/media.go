package media

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileRef is the generated storage name of an uploaded file. Callers build
// retrieval paths by joining it with a public base path.
type FileRef string

func (r FileRef) String() string {
	return string(r)
}

// ObjectInfo describes a stored file.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

// IsAllowedImageType reports whether mimeType is one of JPEG, PNG or GIF.
// Parameters such as "; charset=" are ignored.
func IsAllowedImageType(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	_, ok := allowedImageTypes[strings.ToLower(strings.TrimSpace(base))]
	return ok
}

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dotRuns         = regexp.MustCompile(`\.{2,}`)
)

const maxOriginalNameLen = 64

// NewFileRef derives a unique name from the upload time, a random suffix and
// the sanitized original file name. The result always passes ValidateFileRef.
func NewFileRef(now time.Time, originalName string) FileRef {
	name := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = dotRuns.ReplaceAllString(name, ".")
	if len(name) > maxOriginalNameLen {
		name = name[len(name)-maxOriginalNameLen:]
	}
	name = strings.Trim(name, "._")
	if name == "" {
		name = "photo"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return FileRef(fmt.Sprintf("%d-%s-%s", now.UnixMilli(), suffix, name))
}

// ValidateFileRef rejects names that could escape the storage root.
func ValidateFileRef(ref FileRef) error {
	s := string(ref)
	if s == "" || s == "." || s == ".." {
		return fmt.Errorf("empty file reference")
	}
	if strings.ContainsAny(s, "/\\") || strings.Contains(s, "..") {
		return fmt.Errorf("file reference %q contains path elements", s)
	}
	if unsafeNameChars.MatchString(s) {
		return fmt.Errorf("file reference %q contains unsupported characters", s)
	}
	return nil
}
