// Package assets resolves script media references against an asset root by
// probing candidate file extensions.
package assets

import (
	"io/fs"
	"path"
	"strings"
)

// Candidate extensions, in probe order.
var (
	ImageExts = []string{"webp", "png", "jpg", "mp4", "webm"}
	VideoExts = []string{"mp4", "webm"}
)

// Resolver finds media files. A Resolver without a filesystem accepts every
// reference as-is.
type Resolver struct {
	fsys fs.FS
}

// New creates a resolver over fsys. fsys may be nil.
func New(fsys fs.FS) *Resolver {
	return &Resolver{fsys: fsys}
}

// Image resolves an image (or animated image) reference. A reference with
// an extension is tried first as written, then every candidate extension is
// appended in turn.
func (r *Resolver) Image(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if r.fsys == nil {
		return ref, true
	}
	if HasExt(ref) && r.exists(ref) {
		return ref, true
	}
	return r.probe(ref, ImageExts)
}

// Video resolves a video reference. A reference with an extension is taken
// as written; otherwise the video extensions are probed.
func (r *Resolver) Video(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if HasExt(ref) || r.fsys == nil {
		return ref, true
	}
	return r.probe(ref, VideoExts)
}

// VideoTwin reports whether an image reference has a video counterpart on
// disk. Without a filesystem there is nothing to probe and the answer is no.
func (r *Resolver) VideoTwin(ref string) (string, bool) {
	if ref == "" || r.fsys == nil || HasExt(ref) {
		return "", false
	}
	return r.probe(ref, VideoExts)
}

// Frames resolves every frame of a sprite sequence, dropping the ones that
// cannot be found.
func (r *Resolver) Frames(refs []string) []string {
	var out []string
	for _, ref := range refs {
		if p, ok := r.Image(ref); ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *Resolver) probe(base string, exts []string) (string, bool) {
	for _, ext := range exts {
		candidate := base + "." + ext
		if r.exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) exists(ref string) bool {
	name := strings.TrimPrefix(path.Clean(ref), "/")
	if !fs.ValidPath(name) {
		return false
	}
	_, err := fs.Stat(r.fsys, name)
	return err == nil
}

// HasExt reports whether ref ends in a file extension.
func HasExt(ref string) bool {
	return len(path.Ext(ref)) > 1
}

// IsVideo reports whether ref names a video file.
func IsVideo(ref string) bool {
	ext := strings.TrimPrefix(path.Ext(ref), ".")
	for _, v := range VideoExts {
		if strings.EqualFold(ext, v) {
			return true
		}
	}
	return false
}

// TimeSuffix returns the background suffix for an hour of the day.
func TimeSuffix(hour int) string {
	switch {
	case hour >= 5 && hour < 15:
		return "_day"
	case hour >= 15 && hour < 20:
		return "_afternoon"
	default:
		return "_night"
	}
}

// WithTimeSuffix inserts the time suffix before the extension of ref, or
// appends it when ref has none.
func WithTimeSuffix(ref string, hour int) string {
	suffix := TimeSuffix(hour)
	if ext := path.Ext(ref); len(ext) > 1 {
		return strings.TrimSuffix(ref, ext) + suffix + ext
	}
	return ref + suffix
}
