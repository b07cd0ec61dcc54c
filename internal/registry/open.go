package registry

import (
	"context"
	"fmt"
)

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
	BackendSQLite = "sqlite"
)

// Options selects and configures a backend
type Options struct {
	Backend   string
	OutputDir string
	UploadDir string
	DBPath    string
}

// Open returns the Store described by opts
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendDisk:
		return NewDiskStore(opts.OutputDir, opts.UploadDir)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.DBPath)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", opts.Backend)
	}
}
