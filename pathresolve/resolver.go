// Package pathresolve walks POSIX-style paths through the directory tree one
// component at a time, resolving a path string plus a starting inode (root
// for absolute paths, the caller's cwd for relative ones) down to the inode
// number it names. There are no symlinks: every step is a plain directory
// lookup.
package pathresolve

import (
	posixpath "path"
	"strings"

	"github.com/go-ext2fs/ext2fs/directory"
	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/inode"
	"github.com/go-ext2fs/ext2fs/volume"
)

// Resolver walks paths against a mounted volume's inode table and directory
// contents.
type Resolver struct {
	table  *inode.Table
	mapper *inode.Mapper
	blocks *volume.Allocator
	root   int
}

// New builds a Resolver over a mounted volume's inode machinery. root is the
// inode number of the filesystem root (conventionally 2).
func New(table *inode.Table, mapper *inode.Mapper, blocks *volume.Allocator, root int) *Resolver {
	return &Resolver{table: table, mapper: mapper, blocks: blocks, root: root}
}

func (r *Resolver) dirFile(inodeNo int) *inode.File {
	return inode.NewFile(r.mapper, r.table, r.blocks, inodeNo)
}

// lookupChild resolves name within the directory at dirInode, which must
// itself be a directory.
func (r *Resolver) lookupChild(dirInode int, name string) (int, errors.DriverError) {
	raw, err := r.table.Read(dirInode)
	if err != nil {
		return 0, err
	}
	if !inode.IsDir(raw.Mode) {
		return 0, errors.ErrNotADirectory
	}

	d := directory.New(r.dirFile(dirInode))
	entry, found, err := d.Lookup(int(raw.Size), name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errors.ErrNotFound
	}
	return int(entry.Inode), nil
}

// normalize cleans path and splits it into non-empty, non-"." components,
// reporting whether it was rooted (absolute).
func normalize(path string) (components []string, absolute bool) {
	cleaned := posixpath.Clean(path)
	absolute = posixpath.IsAbs(cleaned)
	for _, c := range strings.Split(cleaned, "/") {
		if c == "" || c == "." {
			continue
		}
		components = append(components, c)
	}
	return
}

// Resolve walks path to the inode number it names, starting from root if
// path is absolute or from cwd otherwise. Every non-final component that
// isn't a directory yields ErrNotADirectory.
func (r *Resolver) Resolve(cwd int, path string) (int, errors.DriverError) {
	components, absolute := normalize(path)

	current := cwd
	if absolute {
		current = r.root
	}

	for i, c := range components {
		next, err := r.lookupChild(current, c)
		if err != nil {
			return 0, err
		}
		if i != len(components)-1 {
			raw, err := r.table.Read(next)
			if err != nil {
				return 0, err
			}
			if !inode.IsDir(raw.Mode) {
				return 0, errors.ErrNotADirectory
			}
		}
		current = next
	}
	return current, nil
}

// SplitParent resolves the parent directory of path and returns it alongside
// the final path component's name, without requiring that name to exist.
// This is the entry point mkdir/create/delete use: they need the parent
// inode plus the leaf name they're about to insert or remove.
func (r *Resolver) SplitParent(cwd int, path string) (parentInode int, name string, err errors.DriverError) {
	components, absolute := normalize(path)
	if len(components) == 0 {
		return 0, "", errors.ErrInvalidArgument.WithMessage("path has no final component")
	}

	name = components[len(components)-1]
	parentComponents := components[:len(components)-1]

	current := cwd
	if absolute {
		current = r.root
	}
	for _, c := range parentComponents {
		next, err := r.lookupChild(current, c)
		if err != nil {
			return 0, "", err
		}
		raw, err := r.table.Read(next)
		if err != nil {
			return 0, "", err
		}
		if !inode.IsDir(raw.Mode) {
			return 0, "", errors.ErrNotADirectory
		}
		current = next
	}
	return current, name, nil
}
