// Command ext2fs is an interactive shell: a single urfave/cli app re-run
// once per line of input against one shared, mounted *fsvol.Volume.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/go-ext2fs/ext2fs/errors"
	"github.com/go-ext2fs/ext2fs/fsvol"
)

func main() {
	os.Exit(run(os.Stdin, os.Stdout))
}

func run(in io.Reader, out io.Writer) int {
	vol := fsvol.New()
	app := newApp(vol, out)

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "ext2fs> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			args, err := shellSplit(line)
			if err != nil {
				fmt.Fprintf(out, "error: %s\n", err)
			} else if err := app.Run(append([]string{"ext2fs"}, args...)); err != nil {
				if err == errQuit {
					return 0
				}
				fmt.Fprintf(out, "error: %s\n", err)
			}
		}
		fmt.Fprint(out, "ext2fs> ")
	}
	return 0
}

// errQuit is the sentinel the quit command returns to unwind the REPL loop
// without urfave/cli treating it as a failing exit status.
var errQuit = fmt.Errorf("quit")

// shellSplit does a minimal whitespace tokenization; there is no quoting, so
// write's payload is the line's remaining words rejoined with single spaces.
func shellSplit(line string) ([]string, error) {
	return strings.Fields(line), nil
}

func newApp(vol *fsvol.Volume, out io.Writer) *cli.App {
	return &cli.App{
		Name:                   "ext2fs",
		Usage:                  "a tiny ext2-style filesystem shell",
		Writer:                 out,
		ErrWriter:              out,
		HideHelpCommand:        true,
		UseShortOptionHandling: true,
		CommandNotFound: func(c *cli.Context, name string) {
			fmt.Fprintf(out, "error: unknown command %q\n", name)
		},
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "create and lay out a fresh disk image",
				ArgsUsage: "IMAGE_PATH",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("usage: format IMAGE_PATH")
					}
					if err := fsvol.Format(c.Args().Get(0)); err != nil {
						return err
					}
					fmt.Fprintln(out, "formatted")
					return nil
				},
			},
			{
				Name:      "mount",
				Usage:     "mount a disk image",
				ArgsUsage: "IMAGE_PATH",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("usage: mount IMAGE_PATH")
					}
					if err := vol.Mount(c.Args().Get(0)); err != nil {
						return err
					}
					fmt.Fprintln(out, "mounted")
					return nil
				},
			},
			{
				Name:  "umount",
				Usage: "unmount the active disk image",
				Action: func(c *cli.Context) error {
					if err := vol.Unmount(); err != nil {
						return err
					}
					fmt.Fprintln(out, "unmounted")
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "report block and inode usage",
				Action: func(c *cli.Context) error {
					st, err := vol.Status()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "total_blocks=%d free_blocks=%d total_inodes=%d free_inodes=%d\n",
						st.TotalBlocks, st.FreeBlocks, st.TotalInodes, st.FreeInodes)
					return nil
				},
			},
			{
				Name:      "login",
				Usage:     "authenticate as a known user",
				ArgsUsage: "USERNAME PASSWORD",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 2 {
						return fmt.Errorf("usage: login USERNAME PASSWORD")
					}
					if err := vol.Login(c.Args().Get(0), c.Args().Get(1)); err != nil {
						return err
					}
					fmt.Fprintf(out, "logged in as %s\n", c.Args().Get(0))
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "clear the current identity",
				Action: func(c *cli.Context) error {
					if err := vol.Logout(); err != nil {
						return err
					}
					fmt.Fprintln(out, "logged out")
					return nil
				},
			},
			{
				Name:  "users",
				Usage: "list known users",
				Action: func(c *cli.Context) error {
					for _, u := range vol.Users() {
						fmt.Fprintf(out, "%s uid=%d gid=%d\n", u.Username, u.UID, u.GID)
					}
					return nil
				},
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "PATH",
				Action:    pathAction(vol.Mkdir, out, "created"),
			},
			{
				Name:      "rmdir",
				Usage:     "remove an empty directory",
				ArgsUsage: "PATH",
				Action:    pathAction(vol.Rmdir, out, "removed"),
			},
			{
				Name:      "dir",
				Usage:     "list a directory's entries",
				ArgsUsage: "[PATH]",
				Action: func(c *cli.Context) error {
					path := ""
					if c.Args().Len() > 0 {
						path = c.Args().Get(0)
					}
					entries, err := vol.Dir(path)
					if err != nil {
						return err
					}
					for _, e := range entries {
						fmt.Fprintf(out, "%-20s inode=%-4d size=%-6d mode=%04o uid=%d gid=%d\n",
							e.Name, e.Inode, e.Size, e.Mode, e.UID, e.GID)
					}
					return nil
				},
			},
			{
				Name:      "cd",
				Usage:     "change the working directory",
				ArgsUsage: "PATH",
				Action:    pathAction(vol.Cd, out, "ok"),
			},
			{
				Name:      "create",
				Usage:     "create an empty regular file",
				ArgsUsage: "PATH",
				Action:    pathAction(vol.Create, out, "created"),
			},
			{
				Name:      "delete",
				Usage:     "delete a regular file",
				ArgsUsage: "PATH",
				Action:    pathAction(vol.Delete, out, "deleted"),
			},
			{
				Name:      "open",
				Usage:     "open a regular file, returning a descriptor",
				ArgsUsage: "PATH FLAGS",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 2 {
						return fmt.Errorf("usage: open PATH FLAGS")
					}
					flags, convErr := strconv.Atoi(c.Args().Get(1))
					if convErr != nil {
						return fmt.Errorf("flags must be 0, 1 or 2")
					}
					fd, err := vol.Open(c.Args().Get(0), flags)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "fd=%d\n", fd)
					return nil
				},
			},
			{
				Name:      "close",
				Usage:     "close a file descriptor",
				ArgsUsage: "FD",
				Action: func(c *cli.Context) error {
					fd, err := fdArg(c)
					if err != nil {
						return err
					}
					if err := vol.Close(fd); err != nil {
						return err
					}
					fmt.Fprintln(out, "closed")
					return nil
				},
			},
			{
				Name:      "read",
				Usage:     "read bytes from a file descriptor",
				ArgsUsage: "FD SIZE",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 2 {
						return fmt.Errorf("usage: read FD SIZE")
					}
					fd, convErr := strconv.Atoi(c.Args().Get(0))
					if convErr != nil {
						return fmt.Errorf("fd must be an integer")
					}
					size, convErr := strconv.Atoi(c.Args().Get(1))
					if convErr != nil {
						return fmt.Errorf("size must be an integer")
					}
					data, err := vol.Read(fd, size)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%q\n", string(data))
					return nil
				},
			},
			{
				Name:      "write",
				Usage:     "write bytes to a file descriptor",
				ArgsUsage: "FD DATA",
				Action: func(c *cli.Context) error {
					if c.Args().Len() < 2 {
						return fmt.Errorf("usage: write FD DATA")
					}
					fd, convErr := strconv.Atoi(c.Args().Get(0))
					if convErr != nil {
						return fmt.Errorf("fd must be an integer")
					}
					payload := strings.Join(c.Args().Slice()[1:], " ")
					n, err := vol.Write(fd, []byte(payload))
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "wrote %d bytes\n", n)
					return nil
				},
			},
			{
				Name:      "chmod",
				Usage:     "change a path's permission bits",
				ArgsUsage: "PATH MODE",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 2 {
						return fmt.Errorf("usage: chmod PATH MODE")
					}
					mode, convErr := strconv.ParseUint(c.Args().Get(1), 8, 16)
					if convErr != nil {
						return fmt.Errorf("mode must be an octal number")
					}
					if err := vol.Chmod(c.Args().Get(0), uint16(mode)); err != nil {
						return err
					}
					fmt.Fprintln(out, "ok")
					return nil
				},
			},
			{
				Name:      "chown",
				Usage:     "change a path's owner uid and gid",
				ArgsUsage: "PATH UID GID",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 3 {
						return fmt.Errorf("usage: chown PATH UID GID")
					}
					uid, convErr := strconv.ParseUint(c.Args().Get(1), 10, 16)
					if convErr != nil {
						return fmt.Errorf("uid must be an integer")
					}
					gid, convErr := strconv.ParseUint(c.Args().Get(2), 10, 16)
					if convErr != nil {
						return fmt.Errorf("gid must be an integer")
					}
					if err := vol.Chown(c.Args().Get(0), uint16(uid), uint16(gid)); err != nil {
						return err
					}
					fmt.Fprintln(out, "ok")
					return nil
				},
			},
			{
				Name:  "quit",
				Usage: "exit the shell",
				Action: func(c *cli.Context) error {
					return errQuit
				},
			},
			{
				Name:  "help",
				Usage: "list available commands",
				Action: func(c *cli.Context) error {
					return cli.ShowAppHelp(c)
				},
			},
		},
	}
}

// pathAction wraps a single-path *fsvol.Volume method into a cli.ActionFunc,
// printing msg on success.
func pathAction(op func(string) errors.DriverError, out io.Writer, msg string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("expects exactly one PATH argument")
		}
		if err := op(c.Args().Get(0)); err != nil {
			return err
		}
		fmt.Fprintln(out, msg)
		return nil
	}
}

func fdArg(c *cli.Context) (int, error) {
	if c.Args().Len() != 1 {
		return 0, fmt.Errorf("expects exactly one FD argument")
	}
	fd, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return 0, fmt.Errorf("fd must be an integer")
	}
	return fd, nil
}
