package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var tagRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Archiver stores a copy of a debug dump remotely.
type Archiver interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// DebugDumper persists fetched HTML for troubleshooting. A zero value (or nil
// pointer) is a no-op.
type DebugDumper struct {
	dir      string
	archiver Archiver
	now      func() time.Time
}

func NewDebugDumper(dir string, archiver Archiver) *DebugDumper {
	return &DebugDumper{dir: dir, archiver: archiver, now: time.Now}
}

// Slug lowercases s and collapses everything outside [a-z0-9] to dashes.
func Slug(s string) string {
	return strings.Trim(tagRegex.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// DumpHTML writes body under name "<kind>-<tag>-<stamp>.html" and returns the
// file name used. Failures are logged, never returned.
func (d *DebugDumper) DumpHTML(ctx context.Context, kind, tag, body string) string {
	if d == nil || (d.dir == "" && d.archiver == nil) {
		return ""
	}

	stamp := d.now().UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("%s-%s-%s.html", Slug(kind), Slug(tag), stamp)

	if d.dir != "" {
		if err := os.MkdirAll(d.dir, 0755); err != nil {
			log.Printf("[debug] mkdir %s: %v", d.dir, err)
		} else if err := os.WriteFile(filepath.Join(d.dir, name), []byte(body), 0644); err != nil {
			log.Printf("[debug] write %s: %v", name, err)
		}
	}

	if d.archiver != nil {
		if err := d.archiver.Upload(ctx, name, strings.NewReader(body), "text/html; charset=utf-8"); err != nil {
			log.Printf("[debug] archive %s: %v", name, err)
		}
	}

	return name
}
