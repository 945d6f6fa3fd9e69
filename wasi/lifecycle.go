package wasi

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
)

// ExitError reports that a guest terminated by calling proc_exit with a
// nonzero code.
type ExitError struct {
	Code uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("module exited with code %d", e.Code)
}

// exitStatus converts a guest exit unwind into a process-style status in
// [0, 255]. The accompanying ExitError keeps the full 32-bit code.
func exitStatus(exit *sys.ExitError) (int, error) {
	if exit.ExitCode() == 0 {
		return 0, nil
	}
	return int(exit.ExitCode() & 0xff), &ExitError{Code: exit.ExitCode()}
}

// Start runs an instantiated guest to completion. A command module's
// _start export is called; a reactor module's _initialize export is
// called instead when _start is absent. The guest's exit code is
// returned, with a zero code treated as plain success.
func (h *Host) Start(ctx context.Context, mod api.Module) (int, error) {
	if mod.Memory() == nil {
		return 1, errors.New("module does not export a linear memory")
	}

	entry := mod.ExportedFunction("_start")
	if entry == nil {
		entry = mod.ExportedFunction("_initialize")
	}
	if entry == nil {
		return 1, errors.New("module exports neither _start nor _initialize")
	}

	_, err := entry.Call(ctx)
	if err == nil {
		return 0, nil
	}

	var exit *sys.ExitError
	if errors.As(err, &exit) {
		return exitStatus(exit)
	}
	return 1, err
}

// Run compiles and executes a WebAssembly binary under a fresh runtime
// configured with this host. It is the one-call path used by the CLI;
// embedders that need to share a runtime or pre-compile modules should
// call Instantiate and Start directly.
func Run(ctx context.Context, binary []byte, opts *Options) (int, error) {
	h, err := New(opts)
	if err != nil {
		return 1, err
	}
	defer h.Close()

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	if _, err := h.Instantiate(ctx, r); err != nil {
		return 1, err
	}

	compiled, err := r.CompileModule(ctx, binary)
	if err != nil {
		return 1, fmt.Errorf("compiling module: %w", err)
	}

	// Host-side argv and environ are served by args_get and environ_get;
	// wazero's own config must not duplicate them.
	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions())
	if err != nil {
		var exit *sys.ExitError
		if errors.As(err, &exit) {
			return exitStatus(exit)
		}
		return 1, err
	}

	return h.Start(ctx, mod)
}
