package identity

import (
	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/inode"
)

// Session holds the identity component's state: whether a user is logged in,
// their uid/gid/username, and their working-directory inode. Not-logged-in
// callers uniformly fail with ErrNotAuthenticated.
type Session struct {
	loggedIn bool
	uid      uint16
	gid      uint16
	username string
	cwd      int
}

// NewSession starts a logged-out session rooted at rootInode.
func NewSession(rootInode int) *Session {
	return &Session{cwd: rootInode}
}

// Login authenticates (username, password) and installs the resulting
// identity, resetting cwd to rootInode as a fresh shell session would.
func (s *Session) Login(username, password string, rootInode int) errors.DriverError {
	user, ok := Authenticate(username, password)
	if !ok {
		return errors.ErrPermissionDenied.WithMessage("bad username or password")
	}
	s.loggedIn = true
	s.uid = user.UID
	s.gid = user.GID
	s.username = user.Username
	s.cwd = rootInode
	return nil
}

// Logout clears the session's identity and resets cwd to rootInode.
func (s *Session) Logout(rootInode int) {
	s.loggedIn = false
	s.uid = 0
	s.gid = 0
	s.username = ""
	s.cwd = rootInode
}

func (s *Session) IsLoggedIn() bool { return s.loggedIn }
func (s *Session) UID() uint16      { return s.uid }
func (s *Session) GID() uint16      { return s.gid }
func (s *Session) Username() string { return s.username }
func (s *Session) Cwd() int         { return s.cwd }

// SetCwd updates the working-directory inode, e.g. after a successful cd.
func (s *Session) SetCwd(inodeNo int) { s.cwd = inodeNo }

// RequireLoggedIn is the guard every path-taking fsvol operation runs after
// its mounted check. The fd-based Close, Read and Write do not run it, and
// neither do Status and Users.
func (s *Session) RequireLoggedIn() errors.DriverError {
	if !s.loggedIn {
		return errors.ErrNotAuthenticated
	}
	return nil
}

// Access is one of Read/Write/Exec, the three permission checks an inode's
// mode can be asked to grant.
type Access int

const (
	Read Access = iota
	Write
	Exec
)

// triplet selects which rwx triplet of mode applies to this session against
// an object owned by (ownerUID, ownerGID):
//  1. uid matches -> owner triplet
//  2. else gid matches -> group triplet
//  3. else -> other triplet
//
// There is no uid-0 override: root is not privileged.
func (s *Session) triplet(ownerUID, ownerGID uint16) uint16 {
	switch {
	case s.uid == ownerUID:
		return inode.OwnerTriplet
	case s.gid == ownerGID:
		return inode.GroupTriplet
	default:
		return inode.OtherTriplet
	}
}

// bitWithinTriplet picks the single rwx bit named by access out of a given
// owner/group/other triplet constant from mode.go.
func bitWithinTriplet(triplet uint16, access Access) uint16 {
	switch triplet {
	case inode.OwnerTriplet:
		return [...]uint16{inode.ModeOwnerRead, inode.ModeOwnerWrite, inode.ModeOwnerExec}[access]
	case inode.GroupTriplet:
		return [...]uint16{inode.ModeGroupRead, inode.ModeGroupWrite, inode.ModeGroupExec}[access]
	default:
		return [...]uint16{inode.ModeOtherRead, inode.ModeOtherWrite, inode.ModeOtherExec}[access]
	}
}

// Check reports whether this session may perform access against an object
// with the given mode, owned by (ownerUID, ownerGID).
func (s *Session) Check(mode, ownerUID, ownerGID uint16, access Access) bool {
	triplet := s.triplet(ownerUID, ownerGID)
	bit := bitWithinTriplet(triplet, access)
	return mode&bit != 0
}

// RequireAccess is Check plus an ErrPermissionDenied return on failure.
func (s *Session) RequireAccess(mode, ownerUID, ownerGID uint16, access Access) errors.DriverError {
	if !s.Check(mode, ownerUID, ownerGID, access) {
		return errors.ErrPermissionDenied
	}
	return nil
}
