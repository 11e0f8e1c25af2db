package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/filex"
	gs "github.com/dmitrijs2005/clouddrive/internal/server/grpc"
)

// ErrUsage is returned for unknown commands and wrong argument counts.
var ErrUsage = errors.New("usage")

const usage = `commands:
  root                              show the root folder
  ls <folderId>                     list a folder
  stat <nodeId>                     show one node
  mkdir <parentId> <name>           create a folder
  touch <parentId> <name>           create an empty file node
  rename <nodeId> <name>            rename a node
  mv <nodeId> <newParentId>         move a node
  rm <nodeId> [cascade]             soft-delete a node (cascade defaults to true)
  upload <fileNodeId> <path>        upload a local file as a new version
  versions <fileNodeId>             list versions of a file
  download <fileNodeId> <dest> [v]  download the latest or a given version`

type command struct {
	args int
	opt  int
	run  func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"root":     {run: (*App).root},
	"ls":       {args: 1, run: (*App).ls},
	"stat":     {args: 1, run: (*App).stat},
	"mkdir":    {args: 2, run: (*App).mkdir},
	"touch":    {args: 2, run: (*App).touch},
	"rename":   {args: 2, run: (*App).rename},
	"mv":       {args: 2, run: (*App).mv},
	"rm":       {args: 1, opt: 1, run: (*App).rm},
	"upload":   {args: 2, run: (*App).upload},
	"versions": {args: 1, run: (*App).versions},
	"download": {args: 2, opt: 1, run: (*App).download},
}

func (a *App) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		fmt.Fprintln(a.out, usage)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	rest := args[1:]
	if len(rest) < cmd.args || len(rest) > cmd.args+cmd.opt {
		return fmt.Errorf("%w: wrong number of arguments for %s", ErrUsage, args[0])
	}
	return cmd.run(a, ctx, rest)
}

func (a *App) printNodes(nodes ...gs.NodeMessage) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tPARENT\tVERSION\tUPDATED")
	for _, n := range nodes {
		parent := "-"
		if n.ParentID != nil {
			parent = *n.ParentID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", n.ID, n.Type, n.Name, parent, n.RowVersion, n.UpdatedAt)
	}
	_ = w.Flush()
}

func (a *App) printNode(n *gs.NodeMessage, err error) error {
	if err != nil {
		return err
	}
	a.printNodes(*n)
	return nil
}

func (a *App) root(ctx context.Context, _ []string) error {
	return a.printNode(a.drive.Root(ctx))
}

func (a *App) ls(ctx context.Context, args []string) error {
	items, err := a.drive.List(ctx, args[0])
	if err != nil {
		return err
	}
	a.printNodes(items...)
	return nil
}

func (a *App) stat(ctx context.Context, args []string) error {
	return a.printNode(a.drive.Stat(ctx, args[0]))
}

func (a *App) mkdir(ctx context.Context, args []string) error {
	return a.printNode(a.drive.Mkdir(ctx, args[0], args[1]))
}

func (a *App) touch(ctx context.Context, args []string) error {
	return a.printNode(a.drive.Touch(ctx, args[0], args[1]))
}

func (a *App) rename(ctx context.Context, args []string) error {
	return a.printNode(a.drive.Rename(ctx, args[0], args[1]))
}

func (a *App) mv(ctx context.Context, args []string) error {
	return a.printNode(a.drive.Move(ctx, args[0], args[1]))
}

func (a *App) rm(ctx context.Context, args []string) error {
	cascade := true
	if len(args) > 1 {
		v, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("%w: cascade must be true or false", ErrUsage)
		}
		cascade = v
	}

	deleted, err := a.drive.Remove(ctx, args[0], cascade)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %d node(s)\n", len(deleted))
	return nil
}

func (a *App) upload(ctx context.Context, args []string) error {
	info, err := filex.Inspect(args[1])
	if err != nil {
		return err
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	res, err := a.drive.Upload(ctx, args[0], f, info.Size, info.MimeType)
	if err != nil {
		return err
	}

	suffix := ""
	if res.AlreadyCompleted {
		suffix = " (already completed)"
	}
	fmt.Fprintf(a.out, "uploaded %s as version %d of %s, %d bytes in %s%s\n",
		info.Path, res.Version.VersionNo, args[0], info.Size, formatDuration(time.Since(start)), suffix)
	return nil
}

func (a *App) versions(ctx context.Context, args []string) error {
	versions, err := a.drive.Versions(ctx, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSIZE\tTYPE\tCREATED")
	for _, v := range versions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.VersionNo, v.SizeBytes, v.MimeType, v.CreatedAt)
	}
	return w.Flush()
}

func (a *App) download(ctx context.Context, args []string) error {
	var versionNo int32
	if len(args) > 2 {
		v, err := strconv.ParseInt(strings.TrimPrefix(args[2], "v"), 10, 32)
		if err != nil || v < 1 {
			return fmt.Errorf("%w: version must be a positive integer", ErrUsage)
		}
		versionNo = int32(v)
	}

	f, err := filex.CreateFile(args[1])
	if err != nil {
		return err
	}

	resp, n, err := a.drive.Download(ctx, args[0], versionNo, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(args[1])
		return err
	}

	fmt.Fprintf(a.out, "downloaded version %d of %s to %s, %d bytes\n", resp.Version.VersionNo, args[0], args[1], n)
	return nil
}
