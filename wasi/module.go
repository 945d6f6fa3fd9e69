package wasi

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

type hostFunc func(ctx context.Context, mod api.Module, stack []uint64)

// Instantiate builds and instantiates the host module on r, exporting
// every preview 1 function backed by h. The host module must be
// instantiated before any guest that imports it.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	b := r.NewHostModuleBuilder(ModuleName)

	type export struct {
		name    string
		params  []api.ValueType
		results []api.ValueType
		fn      hostFunc
	}

	exports := []export{
		{"args_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.argsGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"args_sizes_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.argsSizesGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"environ_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.environGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"environ_sizes_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.environSizesGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"clock_res_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.clockResGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"clock_time_get", []api.ValueType{i32, i64, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.clockTimeGet(memOf(mod), u32(stack[0]), stack[1], u32(stack[2])))
		}},
		{"fd_advise", []api.ValueType{i32, i64, i64, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdAdvise(u32(stack[0]), stack[1], stack[2], uint8(stack[3])))
		}},
		{"fd_allocate", []api.ValueType{i32, i64, i64}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdAllocate(u32(stack[0]), stack[1], stack[2]))
		}},
		{"fd_close", sig1, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdClose(u32(stack[0])))
		}},
		{"fd_datasync", sig1, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdDatasync(u32(stack[0])))
		}},
		{"fd_fdstat_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdFdstatGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"fd_fdstat_set_flags", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdFdstatSetFlags(u32(stack[0]), u32(stack[1])))
		}},
		{"fd_fdstat_set_rights", []api.ValueType{i32, i64, i64}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdFdstatSetRights(u32(stack[0]), Rights(stack[1]), Rights(stack[2])))
		}},
		{"fd_filestat_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdFilestatGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"fd_filestat_set_size", []api.ValueType{i32, i64}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdFilestatSetSize(u32(stack[0]), stack[1]))
		}},
		{"fd_filestat_set_times", []api.ValueType{i32, i64, i64, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdFilestatSetTimes(u32(stack[0]), stack[1], stack[2], u32(stack[3])))
		}},
		{"fd_pread", []api.ValueType{i32, i32, i32, i64, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdPread(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), stack[3], u32(stack[4])))
		}},
		{"fd_prestat_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdPrestatGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"fd_prestat_dir_name", sig3, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdPrestatDirName(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2])))
		}},
		{"fd_pwrite", []api.ValueType{i32, i32, i32, i64, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdPwrite(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), stack[3], u32(stack[4])))
		}},
		{"fd_read", sig4, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdRead(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3])))
		}},
		{"fd_readdir", []api.ValueType{i32, i32, i32, i64, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdReaddir(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), stack[3], u32(stack[4])))
		}},
		{"fd_renumber", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdRenumber(u32(stack[0]), u32(stack[1])))
		}},
		{"fd_seek", []api.ValueType{i32, i64, i32, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdSeek(memOf(mod), u32(stack[0]), int64(stack[1]), u32(stack[2]), u32(stack[3])))
		}},
		{"fd_sync", sig1, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdSync(u32(stack[0])))
		}},
		{"fd_tell", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdTell(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"fd_write", sig4, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.fdWrite(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3])))
		}},
		{"path_create_directory", sig3, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathCreateDirectory(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2])))
		}},
		{"path_filestat_get", sig5, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathFilestatGet(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4])))
		}},
		{"path_filestat_set_times", []api.ValueType{i32, i32, i32, i32, i64, i64, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathFilestatSetTimes(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3]), stack[4], stack[5], u32(stack[6])))
		}},
		{"path_link", sig7, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathLink(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4]), u32(stack[5]), u32(stack[6])))
		}},
		{"path_open", []api.ValueType{i32, i32, i32, i32, i32, i64, i64, i32, i32}, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathOpen(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4]), Rights(stack[5]), Rights(stack[6]), u32(stack[7]), u32(stack[8])))
		}},
		{"path_readlink", sig6, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathReadlink(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4]), u32(stack[5])))
		}},
		{"path_remove_directory", sig3, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathRemoveDirectory(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2])))
		}},
		{"path_rename", sig6, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathRename(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4]), u32(stack[5])))
		}},
		{"path_symlink", sig5, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathSymlink(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4])))
		}},
		{"path_unlink_file", sig3, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pathUnlinkFile(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2])))
		}},
		{"poll_oneoff", sig4, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.pollOneoff(memOf(mod), u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3])))
		}},
		{"proc_exit", sig1, nil, func(ctx context.Context, mod api.Module, stack []uint64) {
			code := u32(stack[0])
			_ = mod.CloseWithExitCode(ctx, code)
			panic(sys.NewExitError(code))
		}},
		{"proc_raise", sig1, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.procRaise(u32(stack[0])))
		}},
		{"sched_yield", nil, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.schedYield())
		}},
		{"random_get", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.randomGet(memOf(mod), u32(stack[0]), u32(stack[1])))
		}},
		{"sock_accept", sig3, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.sockUnsupported())
		}},
		{"sock_recv", sig6, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.sockUnsupported())
		}},
		{"sock_send", sig5, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.sockUnsupported())
		}},
		{"sock_shutdown", sig2, ret1, func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.sockUnsupported())
		}},
	}

	for _, e := range exports {
		b.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(h.wrap(e.name, e.fn)), e.params, e.results).
			Export(e.name)
	}
	return b.Instantiate(ctx)
}

var (
	sig1 = []api.ValueType{i32}
	sig2 = []api.ValueType{i32, i32}
	sig3 = []api.ValueType{i32, i32, i32}
	sig4 = []api.ValueType{i32, i32, i32, i32}
	sig5 = []api.ValueType{i32, i32, i32, i32, i32}
	sig6 = []api.ValueType{i32, i32, i32, i32, i32, i32}
	sig7 = []api.ValueType{i32, i32, i32, i32, i32, i32, i32}
	ret1 = []api.ValueType{i32}
)

func u32(v uint64) uint32 {
	return uint32(v)
}

func memOf(mod api.Module) *view {
	return &view{mem: mod.Memory()}
}

// wrap converts a host panic into EIO rather than tearing down the
// embedding process. The exit unwind raised by proc_exit is not a fault
// and passes through untouched.
func (h *Host) wrap(name string, fn hostFunc) hostFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if _, ok := r.(*sys.ExitError); ok {
				panic(r)
			}
			h.log.Error("host call panicked",
				zap.String("call", name),
				zap.Any("panic", r))
			if len(stack) > 0 {
				stack[0] = uint64(ErrnoIo)
			}
		}()
		fn(ctx, mod, stack)
	}
}
