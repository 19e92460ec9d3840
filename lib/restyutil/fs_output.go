package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput dumps one file per http exchange to a directory, for
// offline inspection when a site changes its markup.
type FilesystemOutput struct {
	dir string
}

func NewFilesystemOutput(dir string) FilesystemOutput {
	return FilesystemOutput{dir: dir}
}

func (o FilesystemOutput) Write(id string, contents string) {
	if err := os.MkdirAll(o.dir, 0755); err != nil {
		slog.Warn("failed to create debug output dir", "dir", o.dir, "err", err)
		return
	}
	path := filepath.Join(o.dir, id+".http.txt")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		slog.Warn("failed to write debug output", "path", path, "err", err)
	}
}
