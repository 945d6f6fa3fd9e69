package wasi

// Rights is the 64-bit capability mask carried by every descriptor. The
// base mask governs operations on the handle itself; the inheriting mask
// bounds the rights of handles opened beneath a directory handle.
type Rights uint64

const (
	// The right to invoke `fd_datasync`.
	// If `path_open` is set, includes the right to invoke
	// `path_open` with `fdflags::dsync`.
	RightsFdDatasync Rights = 1 << 0

	// The right to invoke `fd_read` and `sock_recv`.
	// If `rights::fd_seek` is set, includes the right to invoke `fd_pread`.
	RightsFdRead Rights = 1 << 1

	// The right to invoke `fd_seek`. This flag implies `rights::fd_tell`.
	RightsFdSeek Rights = 1 << 2

	// The right to invoke `fd_fdstat_set_flags`.
	RightsFdFdstatSetFlags Rights = 1 << 3

	// The right to invoke `fd_sync`.
	// If `path_open` is set, includes the right to invoke
	// `path_open` with `fdflags::rsync` and `fdflags::dsync`.
	RightsFdSync Rights = 1 << 4

	// The right to invoke `fd_seek` in such a way that the file offset
	// remains unaltered (i.e., `whence::cur` with offset zero), or to
	// invoke `fd_tell`.
	RightsFdTell Rights = 1 << 5

	// The right to invoke `fd_write` and `sock_send`.
	// If `rights::fd_seek` is set, includes the right to invoke `fd_pwrite`.
	RightsFdWrite Rights = 1 << 6

	// The right to invoke `fd_advise`.
	RightsFdAdvise Rights = 1 << 7

	// The right to invoke `fd_allocate`.
	RightsFdAllocate Rights = 1 << 8

	// The right to invoke `path_create_directory`.
	RightsPathCreateDirectory Rights = 1 << 9

	// If `path_open` is set, the right to invoke `path_open` with `oflags::creat`.
	RightsPathCreateFile Rights = 1 << 10

	// The right to invoke `path_link` with the file descriptor as the
	// source directory.
	RightsPathLinkSource Rights = 1 << 11

	// The right to invoke `path_link` with the file descriptor as the
	// target directory.
	RightsPathLinkTarget Rights = 1 << 12

	// The right to invoke `path_open`.
	RightsPathOpen Rights = 1 << 13

	// The right to invoke `fd_readdir`.
	RightsFdReaddir Rights = 1 << 14

	// The right to invoke `path_readlink`.
	RightsPathReadlink Rights = 1 << 15

	// The right to invoke `path_rename` with the file descriptor as the source directory.
	RightsPathRenameSource Rights = 1 << 16

	// The right to invoke `path_rename` with the file descriptor as the target directory.
	RightsPathRenameTarget Rights = 1 << 17

	// The right to invoke `path_filestat_get`.
	RightsPathFilestatGet Rights = 1 << 18

	// The right to change a file's size (there is no `path_filestat_set_size`).
	// If `path_open` is set, includes the right to invoke `path_open` with `oflags::trunc`.
	RightsPathFilestatSetSize Rights = 1 << 19

	// The right to invoke `path_filestat_set_times`.
	RightsPathFilestatSetTimes Rights = 1 << 20

	// The right to invoke `fd_filestat_get`.
	RightsFdFilestatGet Rights = 1 << 21

	// The right to invoke `fd_filestat_set_size`.
	RightsFdFilestatSetSize Rights = 1 << 22

	// The right to invoke `fd_filestat_set_times`.
	RightsFdFilestatSetTimes Rights = 1 << 23

	// The right to invoke `path_symlink`.
	RightsPathSymlink Rights = 1 << 24

	// The right to invoke `path_remove_directory`.
	RightsPathRemoveDirectory Rights = 1 << 25

	// The right to invoke `path_unlink_file`.
	RightsPathUnlinkFile Rights = 1 << 26

	// If `rights::fd_read` is set, includes the right to invoke `poll_oneoff` to subscribe to `eventtype::fd_read`.
	// If `rights::fd_write` is set, includes the right to invoke `poll_oneoff` to subscribe to `eventtype::fd_write`.
	RightsPollFdReadwrite Rights = 1 << 27

	// The right to invoke `sock_shutdown`.
	RightsSockShutdown Rights = 1 << 28

	// The right to invoke `sock_accept`.
	RightsSockAccept Rights = 1 << 29
)

const (
	// FileRights is the subset of rights that apply to regular files.
	FileRights = RightsFdDatasync | RightsFdRead | RightsFdSeek |
		RightsFdFdstatSetFlags | RightsFdSync | RightsFdTell | RightsFdWrite |
		RightsFdAdvise | RightsFdAllocate | RightsFdFilestatGet |
		RightsFdFilestatSetSize | RightsFdFilestatSetTimes | RightsPollFdReadwrite

	// DirectoryRights is the subset of rights that apply to directories.
	DirectoryRights = RightsFdFdstatSetFlags | RightsFdSync |
		RightsFdAdvise | RightsPathCreateDirectory | RightsPathCreateFile |
		RightsPathLinkSource | RightsPathLinkTarget | RightsPathOpen |
		RightsFdReaddir | RightsPathReadlink | RightsPathRenameSource |
		RightsPathRenameTarget | RightsPathFilestatGet |
		RightsPathFilestatSetSize | RightsPathFilestatSetTimes |
		RightsFdFilestatGet | RightsFdFilestatSetTimes | RightsPathSymlink |
		RightsPathRemoveDirectory | RightsPathUnlinkFile | RightsPollFdReadwrite

	// TTYRights is the reduced set granted to an interactive character
	// device: enough for line-oriented I/O and nothing that makes sense
	// only on storage.
	TTYRights = RightsFdRead | RightsFdFdstatSetFlags | RightsFdWrite |
		RightsFdFilestatGet | RightsPollFdReadwrite

	// AllRights is every defined right, the conservative ceiling for
	// handle kinds without a narrower profile.
	AllRights = FileRights | DirectoryRights | RightsSockShutdown | RightsSockAccept

	// ReadOnlyRights strips every mutating right; used by embedders and
	// the CLI `=ro` mount flag.
	ReadOnlyRights = RightsFdRead | RightsFdSeek | RightsFdTell |
		RightsFdAdvise | RightsPathOpen | RightsFdReaddir | RightsPathReadlink |
		RightsPathFilestatGet | RightsFdFilestatGet | RightsPollFdReadwrite
)

// deriveRights computes the (base, inheriting) ceiling for a freshly
// opened handle of the given type. Directories inherit the union of
// directory and file rights so descendants receive a correct subset;
// unknown and socket-like kinds keep the conservative full set.
func deriveRights(kind Filetype, isTTY bool) (base, inheriting Rights) {
	switch {
	case kind == FiletypeRegularFile:
		return FileRights, 0
	case kind == FiletypeDirectory:
		return DirectoryRights, DirectoryRights | FileRights
	case kind == FiletypeCharacterDevice && isTTY:
		return TTYRights, 0
	default:
		return AllRights, AllRights
	}
}

// checkRights fails with ENOTCAPABLE iff any required bit is missing from
// the held base mask.
func checkRights(held, required Rights) Errno {
	if held&required != required {
		return ErrnoNotcapable
	}
	return ErrnoSuccess
}
