package fsvol

import (
	"github.com/go-ext2fs/ext2fs/directory"
	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/identity"
	"github.com/go-ext2fs/ext2fs/inode"
)

func (v *Volume) file(inodeNo int) *inode.File {
	return inode.NewFile(v.mapper, v.table, v.blocks, inodeNo)
}

func (v *Volume) dirOf(inodeNo int) *directory.Directory {
	return directory.New(v.file(inodeNo))
}

// Login authenticates against the identity service and resets cwd to root.
func (v *Volume) Login(username, password string) errors.DriverError {
	if err := v.requireMounted(); err != nil {
		return err
	}
	return v.session.Login(username, password, RootInode)
}

// Logout clears the current identity.
func (v *Volume) Logout() errors.DriverError {
	if err := v.requireMounted(); err != nil {
		return err
	}
	v.session.Logout(RootInode)
	return nil
}

// Users lists every known user in the identity service.
func (v *Volume) Users() []identity.User {
	return identity.List()
}

// resolve is the shared guard every path-taking operation runs first:
// mounted, logged in, then resolved against cwd.
func (v *Volume) resolve(path string) (int, errors.DriverError) {
	if err := v.requireMounted(); err != nil {
		return 0, err
	}
	if err := v.session.RequireLoggedIn(); err != nil {
		return 0, err
	}
	return v.resolver.Resolve(v.session.Cwd(), path)
}

func (v *Volume) splitParent(path string) (int, string, errors.DriverError) {
	if err := v.requireMounted(); err != nil {
		return 0, "", err
	}
	if err := v.session.RequireLoggedIn(); err != nil {
		return 0, "", err
	}
	return v.resolver.SplitParent(v.session.Cwd(), path)
}

// Mkdir creates an empty directory at path: a new inode, "." and ".." self
// entries, link count 2, and a parent-directory entry. The parent's own link
// count is bumped by one for the new child's "..".
func (v *Volume) Mkdir(path string) errors.DriverError {
	parentNo, name, err := v.splitParent(path)
	if err != nil {
		return err
	}

	parentRaw, err := v.table.Read(parentNo)
	if err != nil {
		return err
	}

	if _, found, err := v.dirOf(parentNo).Lookup(int(parentRaw.Size), name); err != nil {
		return err
	} else if found {
		return errors.ErrExists
	}

	childNo, err := v.inodes.Allocate()
	if err != nil {
		return err
	}

	ts := now()
	child := inode.Raw{
		Mode:  inode.DefaultDirMode,
		Uid:   v.session.UID(),
		Gid:   v.session.GID(),
		Links: 2,
		Atime: ts,
		Mtime: ts,
		Ctime: ts,
	}
	if err := v.table.Write(childNo, child); err != nil {
		_ = v.inodes.Free(childNo)
		return err
	}

	childDir := v.dirOf(childNo)
	size, err := childDir.Insert(0, ".", uint32(childNo), directory.FileTypeDir)
	if err != nil {
		_ = v.deleteInode(childNo)
		return err
	}
	if _, err := childDir.Insert(size, "..", uint32(parentNo), directory.FileTypeDir); err != nil {
		_ = v.deleteInode(childNo)
		return err
	}

	if _, err := v.dirOf(parentNo).Insert(int(parentRaw.Size), name, uint32(childNo), directory.FileTypeDir); err != nil {
		_ = v.deleteInode(childNo)
		return err
	}

	parentRaw, err = v.table.Read(parentNo)
	if err != nil {
		return err
	}
	parentRaw.Links++
	parentRaw.Mtime = now()
	return v.table.Write(parentNo, parentRaw)
}

// Rmdir removes the empty directory at path. It fails with ErrDirectoryNotEmpty
// unless the directory contains only "." and "..".
func (v *Volume) Rmdir(path string) errors.DriverError {
	parentNo, name, err := v.splitParent(path)
	if err != nil {
		return err
	}

	childEntry, found, err := v.dirOf(parentNo).Lookup(mustSize(v.table, parentNo), name)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrNotFound
	}

	childRaw, err := v.table.Read(int(childEntry.Inode))
	if err != nil {
		return err
	}
	if !inode.IsDir(childRaw.Mode) {
		return errors.ErrNotADirectory
	}

	empty, err := v.dirOf(int(childEntry.Inode)).IsEmpty(int(childRaw.Size))
	if err != nil {
		return err
	}
	if !empty {
		return errors.ErrDirectoryNotEmpty
	}

	if err := v.deleteInode(int(childEntry.Inode)); err != nil {
		return err
	}

	if err := v.dirOf(parentNo).Remove(mustSize(v.table, parentNo), name); err != nil {
		return err
	}

	parentRaw, err := v.table.Read(parentNo)
	if err != nil {
		return err
	}
	parentRaw.Links--
	parentRaw.Mtime = now()
	return v.table.Write(parentNo, parentRaw)
}

// deleteInode frees an inode's blocks and returns it to the pool.
func (v *Volume) deleteInode(inodeNo int) errors.DriverError {
	_, err := v.mapper.Delete(inodeNo, v.inodes)
	return err
}

func mustSize(table *inode.Table, inodeNo int) int {
	raw, err := table.Read(inodeNo)
	if err != nil {
		return 0
	}
	return int(raw.Size)
}

// Create makes a new, empty regular file at path.
func (v *Volume) Create(path string) errors.DriverError {
	parentNo, name, err := v.splitParent(path)
	if err != nil {
		return err
	}

	parentRaw, err := v.table.Read(parentNo)
	if err != nil {
		return err
	}

	if _, found, err := v.dirOf(parentNo).Lookup(int(parentRaw.Size), name); err != nil {
		return err
	} else if found {
		return errors.ErrExists
	}

	childNo, err := v.inodes.Allocate()
	if err != nil {
		return err
	}

	ts := now()
	child := inode.Raw{
		Mode:  inode.DefaultFileMode,
		Uid:   v.session.UID(),
		Gid:   v.session.GID(),
		Links: 1,
		Atime: ts,
		Mtime: ts,
		Ctime: ts,
	}
	if err := v.table.Write(childNo, child); err != nil {
		_ = v.inodes.Free(childNo)
		return err
	}

	if _, err := v.dirOf(parentNo).Insert(int(parentRaw.Size), name, uint32(childNo), directory.FileTypeRegular); err != nil {
		_ = v.deleteInode(childNo)
		return err
	}

	parentRaw, err = v.table.Read(parentNo)
	if err != nil {
		return err
	}
	parentRaw.Mtime = now()
	return v.table.Write(parentNo, parentRaw)
}

// Delete removes the regular file at path.
func (v *Volume) Delete(path string) errors.DriverError {
	parentNo, name, err := v.splitParent(path)
	if err != nil {
		return err
	}

	entry, found, err := v.dirOf(parentNo).Lookup(mustSize(v.table, parentNo), name)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrNotFound
	}

	childRaw, err := v.table.Read(int(entry.Inode))
	if err != nil {
		return err
	}
	if !inode.IsRegular(childRaw.Mode) {
		return errors.ErrNotARegularFile
	}

	if err := v.deleteInode(int(entry.Inode)); err != nil {
		return err
	}
	return v.dirOf(parentNo).Remove(mustSize(v.table, parentNo), name)
}

// DirListing is one row `dir` prints.
type DirListing struct {
	Name     string
	Inode    int
	FileType byte
	Size     int
	Mode     uint16
	UID      uint16
	GID      uint16
	Mtime    uint32
}

// Dir lists the children of the directory at path (default "/").
func (v *Volume) Dir(path string) ([]DirListing, errors.DriverError) {
	if path == "" {
		path = "/"
	}
	dirNo, err := v.resolve(path)
	if err != nil {
		return nil, err
	}

	raw, err := v.table.Read(dirNo)
	if err != nil {
		return nil, err
	}
	if !inode.IsDir(raw.Mode) {
		return nil, errors.ErrNotADirectory
	}
	if err := v.session.RequireAccess(raw.Mode, raw.Uid, raw.Gid, identity.Read); err != nil {
		return nil, err
	}

	entries, err := v.dirOf(dirNo).List(int(raw.Size))
	if err != nil {
		return nil, err
	}

	out := make([]DirListing, 0, len(entries))
	for _, e := range entries {
		childRaw, err := v.table.Read(int(e.Inode))
		if err != nil {
			return nil, err
		}
		out = append(out, DirListing{
			Name:     e.Name,
			Inode:    int(e.Inode),
			FileType: e.FileType,
			Size:     int(childRaw.Size),
			Mode:     childRaw.Mode,
			UID:      childRaw.Uid,
			GID:      childRaw.Gid,
			Mtime:    childRaw.Mtime,
		})
	}
	return out, nil
}

// Cd changes the session's working directory.
func (v *Volume) Cd(path string) errors.DriverError {
	target, err := v.resolve(path)
	if err != nil {
		return err
	}
	raw, err := v.table.Read(target)
	if err != nil {
		return err
	}
	if !inode.IsDir(raw.Mode) {
		return errors.ErrNotADirectory
	}
	v.session.SetCwd(target)
	return nil
}

// Chmod replaces the low 12 mode bits (permissions + setuid/gid/sticky) of
// the inode at path.
func (v *Volume) Chmod(path string, permBits uint16) errors.DriverError {
	target, err := v.resolve(path)
	if err != nil {
		return err
	}
	raw, err := v.table.Read(target)
	if err != nil {
		return err
	}
	raw.Mode = (raw.Mode &^ inode.PermMask) | (permBits & inode.PermMask)
	raw.Ctime = now()
	return v.table.Write(target, raw)
}

// Chown changes the owner uid/gid of the inode at path. Ownership changes
// are unauthorized: no check beyond being logged in and mounted.
func (v *Volume) Chown(path string, uid, gid uint16) errors.DriverError {
	target, err := v.resolve(path)
	if err != nil {
		return err
	}
	raw, err := v.table.Read(target)
	if err != nil {
		return err
	}
	raw.Uid = uid
	raw.Gid = gid
	raw.Ctime = now()
	return v.table.Write(target, raw)
}

// Open resolves path, checks the access flags imply against the inode's
// permission bits, and installs an entry in the open-file table. flags is
// 0 (read-only), 1 (write-only) or 2 (read-write).
func (v *Volume) Open(path string, flags int) (int, errors.DriverError) {
	if flags != FlagReadOnly && flags != FlagWriteOnly && flags != FlagReadWrite {
		return 0, errors.ErrInvalidArgument.WithMessage("flags must be 0, 1 or 2")
	}

	target, err := v.resolve(path)
	if err != nil {
		return 0, err
	}
	raw, err := v.table.Read(target)
	if err != nil {
		return 0, err
	}
	if !inode.IsRegular(raw.Mode) {
		return 0, errors.ErrNotARegularFile
	}

	if flags == FlagReadOnly || flags == FlagReadWrite {
		if err := v.session.RequireAccess(raw.Mode, raw.Uid, raw.Gid, identity.Read); err != nil {
			return 0, err
		}
	}
	if flags == FlagWriteOnly || flags == FlagReadWrite {
		if err := v.session.RequireAccess(raw.Mode, raw.Uid, raw.Gid, identity.Write); err != nil {
			return 0, err
		}
	}

	return v.open.Open(target, flags)
}

// Close invalidates fd.
func (v *Volume) Close(fd int) errors.DriverError {
	if err := v.requireMounted(); err != nil {
		return err
	}
	return v.open.Close(fd)
}

// Read reads up to size bytes from fd at its current offset, advancing it
// by however many bytes were actually read.
func (v *Volume) Read(fd int, size int) ([]byte, errors.DriverError) {
	if err := v.requireMounted(); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, errors.ErrInvalidArgument.WithMessage("size must be non-negative")
	}
	inodeNo, flags, offset, err := v.open.Lookup(fd)
	if err != nil {
		return nil, err
	}
	if flags != FlagReadOnly && flags != FlagReadWrite {
		return nil, errors.ErrInvalidFileDescriptor.WithMessage("file not open for reading")
	}

	buf := make([]byte, size)
	n, err := v.file(inodeNo).Read(buf, size, offset)
	if err != nil {
		return nil, err
	}
	if err := v.open.Advance(fd, n); err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Write writes data to fd at its current offset, advancing it by however
// many bytes were actually written.
func (v *Volume) Write(fd int, data []byte) (int, errors.DriverError) {
	if err := v.requireMounted(); err != nil {
		return 0, err
	}
	inodeNo, flags, offset, err := v.open.Lookup(fd)
	if err != nil {
		return 0, err
	}
	if flags != FlagWriteOnly && flags != FlagReadWrite {
		return 0, errors.ErrInvalidFileDescriptor.WithMessage("file not open for writing")
	}

	n, err := v.file(inodeNo).Write(data, len(data), offset)
	if advErr := v.open.Advance(fd, n); advErr != nil && err == nil {
		err = advErr
	}
	return n, err
}
