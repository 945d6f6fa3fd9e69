// Package wasi implements a WASI snapshot_preview1 host: the syscall
// surface a sandboxed WebAssembly guest uses to reach the filesystem,
// clocks, randomness, polling, and process control. Host functions read
// and write the guest's exported linear memory directly and gate every
// file operation on a per-handle capability mask.
//
// The package registers itself as the "wasi_snapshot_preview1" host
// module on a wazero runtime; see Instantiate and Run.
package wasi

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// ModuleName is the import namespace guests link against.
const ModuleName = "wasi_snapshot_preview1"

// Options configures one host instance.
type Options struct {
	// Args is the guest's argv, including the program name.
	Args []string

	// Env is the guest's environment.
	Env map[string]string

	// Preopens maps guest-visible virtual paths to host directories.
	// When empty, the filesystem root is preopened at "/". Note that a
	// root preopen grants the guest the whole host filesystem; embedders
	// wanting a sandbox must mount a narrow tree instead.
	Preopens map[string]string

	// PreopenRights optionally narrows the base rights of a preopen,
	// keyed by its virtual path. Unlisted preopens receive the full
	// directory set.
	PreopenRights map[string]Rights

	// Stdin, Stdout, and Stderr override the process std streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives records for unexpected host faults. Defaults to a
	// no-op logger.
	Logger *zap.Logger
}

// Host owns the descriptor table and ambient state for one guest
// instance. A Host is bound to exactly one guest module and is not safe
// for concurrent use; WASI preview 1 is single-threaded by construction.
type Host struct {
	args  []string
	env   []string
	files *table
	epoch time.Time
	log   *zap.Logger
}

// New builds a host from the given options, opening every preopen root.
// The returned Host owns the opened directories; call Close to release
// them if the guest never runs to termination.
func New(opts *Options) (*Host, error) {
	if opts == nil {
		opts = &Options{}
	}

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	h := &Host{
		args:  opts.Args,
		env:   env,
		files: newTable(),
		epoch: time.Now(),
		log:   log,
	}

	h.files.bind(fdStdin, stdinDescriptor(opts.Stdin))
	h.files.bind(fdStdout, writerDescriptor(opts.Stdout, os.Stdout))
	h.files.bind(fdStderr, writerDescriptor(opts.Stderr, os.Stderr))

	preopens := opts.Preopens
	if len(preopens) == 0 {
		preopens = defaultPreopens()
	}
	guestPaths := make([]string, 0, len(preopens))
	for p := range preopens {
		guestPaths = append(guestPaths, p)
	}
	sort.Strings(guestPaths)

	for i, guestPath := range guestPaths {
		hostPath := preopens[guestPath]
		d, err := openPreopen(guestPath, hostPath)
		if err != nil {
			h.files.closeAll()
			return nil, fmt.Errorf("preopen %q: %w", guestPath, err)
		}
		if limit, ok := opts.PreopenRights[guestPath]; ok {
			d.rightsBase &= limit
		}
		h.files.bind(uint32(firstPreopenFd+i), d)
	}

	return h, nil
}

// Close releases every outstanding host handle. Safe to call more than
// once.
func (h *Host) Close() {
	h.files.closeAll()
}

// monotonicNow is the reading of the instance's monotonic clock in
// nanoseconds. Strictly increasing between calls separated by real time.
func (h *Host) monotonicNow() uint64 {
	return uint64(time.Since(h.epoch).Nanoseconds())
}

func stdinDescriptor(override io.Reader) *descriptor {
	if override != nil {
		return &descriptor{
			kind:       FiletypeCharacterDevice,
			rightsBase: TTYRights &^ RightsFdWrite,
			reader:     override,
		}
	}
	return stdStreamDescriptor(os.Stdin)
}

func writerDescriptor(override io.Writer, fallback *os.File) *descriptor {
	if override != nil {
		return &descriptor{
			kind:       FiletypeCharacterDevice,
			rightsBase: TTYRights &^ RightsFdRead,
			writer:     override,
			fdflags:    fdflagsAppend,
		}
	}
	return stdStreamDescriptor(fallback)
}

func stdStreamDescriptor(f *os.File) *descriptor {
	kind := FiletypeCharacterDevice
	if info, err := f.Stat(); err == nil {
		kind = filetypeOf(info.Mode())
	}
	base, inheriting := deriveRights(kind, term.IsTerminal(int(f.Fd())))
	return &descriptor{
		kind:             kind,
		rightsBase:       base,
		rightsInheriting: inheriting,
		file:             f,
	}
}

func openPreopen(guestPath, hostPath string) (*descriptor, error) {
	f, err := os.Open(hostPath)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is not a directory", hostPath)
	}
	return &descriptor{
		kind:             FiletypeDirectory,
		rightsBase:       DirectoryRights,
		rightsInheriting: DirectoryRights | FileRights,
		file:             f,
		realPath:         hostPath,
		guestPath:        guestPath,
	}, nil
}
