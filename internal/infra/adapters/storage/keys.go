package storage

import (
	"crypto/rand"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ObjectKey builds prefix/<ulid>-<name>. ULIDs sort by creation time, so a
// listing of a prefix comes back oldest first.
func ObjectKey(prefix, name string, now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	name = sanitize(name)
	if name == "" {
		return path.Join(prefix, id.String())
	}
	return path.Join(prefix, id.String()+"-"+name)
}

func sanitize(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
