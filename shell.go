package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cinevault/cinevault/internal/api"
	"github.com/cinevault/cinevault/internal/media"
	"github.com/cinevault/cinevault/internal/session"
)

const shellHelp = `Commands:
  list                   show all records
  show [id]              show one record, or the open draft
  new                    open an empty draft
  edit <id>              open a draft of an existing record
  set <field> <value>    change a draft field (type, title, director,
                         budget, location, duration, date)
  save                   submit the open draft
  cancel                 close the open draft without saving
  rm <id>                delete a record
  reload                 fetch the list again from the server
  whoami                 show the signed-in user
  logout                 end the session and leave
  quit                   leave
`

var errSessionEnded = errors.New("the session was ended by another process")

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive home screen",
		Long: `Open an interactive session on your list: browse, draft, edit and delete
records. With the file session backend, a login or logout made by another
cinevault process is picked up while the shell is open.`,
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	return cc.withClient(cmd.Context(), func(client *api.Client, store session.Store) error {
		ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
		defer stop()

		syncer, user, err := loadHome(ctx, client, cc.Logger)
		if err != nil {
			return err
		}

		sh := &shell{
			cc:      cc,
			client:  client,
			syncer:  syncer,
			user:    user,
			out:     cc.Out,
			changes: make(chan session.Session, 1),
			prompt:  isTerminal(cmd.InOrStdin()),
		}

		return sh.runWithWatch(ctx, cmd.InOrStdin(), store)
	})
}

// shell is the interactive loop. All state is owned by the loop goroutine;
// session changes from the watcher arrive on changes.
type shell struct {
	cc     *CLIContext
	client *api.Client
	syncer *media.Synchronizer
	user   *api.User
	out    io.Writer
	prompt bool

	draft    media.Draft
	drafting bool

	changes chan session.Session
}

// runWithWatch runs the loop and, for a file-backed session, a watcher that
// reports changes made by other processes.
func (sh *shell) runWithWatch(ctx context.Context, in io.Reader, store session.Store) error {
	fs, ok := store.(*session.FileStore)
	if !ok {
		return sh.run(ctx, in)
	}

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, stop := context.WithCancel(gctx)

	g.Go(func() error {
		return fs.Watch(loopCtx, sh.notify)
	})

	g.Go(func() error {
		defer stop()
		return sh.run(loopCtx, in)
	})

	return g.Wait()
}

// notify keeps only the newest session change.
func (sh *shell) notify(s session.Session) {
	for {
		select {
		case sh.changes <- s:
			return
		default:
		}

		select {
		case <-sh.changes:
		default:
		}
	}
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(sh.out, "Signed in as %s. %d record(s). Type 'help' for commands.\n",
		sh.user.Username, len(sh.syncer.Records()))

	for {
		sh.showPrompt()

		select {
		case <-ctx.Done():
			return nil

		case s := <-sh.changes:
			if !s.HasAccess() {
				sh.syncer.Reset()
				return errSessionEnded
			}

			fmt.Fprintln(sh.out, "\nSession updated by another process.")

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			quit, err := sh.exec(ctx, line)
			if err != nil {
				if errors.Is(err, api.ErrSessionExpired) {
					sh.syncer.Reset()
					return err
				}

				fmt.Fprintln(sh.out, "error: "+describeError(err))
			}

			if quit {
				return nil
			}
		}
	}
}

func (sh *shell) showPrompt() {
	if !sh.prompt {
		return
	}

	if id, ok := sh.syncer.Editing(); ok {
		fmt.Fprintf(sh.out, "cinevault [edit %s]> ", id)
	} else if sh.drafting {
		fmt.Fprint(sh.out, "cinevault [new]> ")
	} else {
		fmt.Fprint(sh.out, "cinevault> ")
	}
}

// exec runs one command line. quit reports that the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) (quit bool, err error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "":
		return false, nil
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
	case "list", "ls":
		return false, printRecords(sh.out, sh.syncer.Records(), false)
	case "show":
		return false, sh.show(rest)
	case "new":
		sh.syncer.CancelEdit()
		sh.draft = media.Draft{Kind: media.KindMovie}
		sh.drafting = true
	case "edit":
		return false, sh.edit(rest)
	case "set":
		return false, sh.set(rest)
	case "save":
		return false, sh.save(ctx)
	case "cancel":
		sh.syncer.CancelEdit()
		sh.drafting = false
	case "rm", "delete":
		return false, sh.remove(ctx, rest)
	case "reload":
		return false, sh.reload(ctx)
	case "whoami":
		fmt.Fprintf(sh.out, "%s (id %s)\n", sh.user.Username, sh.user.ID)
	case "logout":
		if err := sh.client.Logout(); err != nil {
			return false, err
		}

		sh.syncer.Reset()
		fmt.Fprintln(sh.out, "Logged out.")

		return true, nil
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, type 'help'", verb)
	}

	return false, nil
}

func (sh *shell) show(id string) error {
	if id == "" {
		if !sh.drafting {
			return errors.New("no open draft; use 'show <id>'")
		}

		printDraft(sh.out, sh.draft)

		return nil
	}

	r, ok := sh.syncer.Get(media.ID(id))
	if !ok {
		return fmt.Errorf("no record with id %s", id)
	}

	printRecordDetail(sh.out, r)

	return nil
}

func (sh *shell) edit(id string) error {
	if id == "" {
		return errors.New("usage: edit <id>")
	}

	d, err := sh.syncer.BeginEdit(media.ID(id))
	if err != nil {
		return err
	}

	sh.draft = d
	sh.drafting = true
	printDraft(sh.out, d)

	return nil
}

func (sh *shell) set(args string) error {
	if !sh.drafting {
		return errors.New("no open draft; use 'new' or 'edit <id>'")
	}

	field, value, ok := strings.Cut(args, " ")
	if !ok && field == "" {
		return errors.New("usage: set <field> <value>")
	}

	return sh.draft.SetField(field, strings.TrimSpace(value))
}

func (sh *shell) save(ctx context.Context) error {
	if !sh.drafting {
		return errors.New("no open draft; use 'new' or 'edit <id>'")
	}

	_, editing := sh.syncer.Editing()

	r, err := sh.syncer.Save(ctx, sh.draft)
	if err != nil {
		return err
	}

	sh.drafting = false
	sh.draft = media.Draft{}

	verb := "Added"
	if editing {
		verb = "Updated"
	}

	fmt.Fprintf(sh.out, "%s %s %q (id %s).\n", verb, kindLabel(r.Kind), r.Title, r.ID)

	return nil
}

func (sh *shell) remove(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("usage: rm <id>")
	}

	editingID, editing := sh.syncer.Editing()

	if err := sh.syncer.Delete(ctx, media.ID(id)); err != nil {
		return err
	}

	if editing && editingID == media.ID(id) {
		sh.drafting = false
		fmt.Fprintln(sh.out, "The record being edited was deleted; draft closed.")
	}

	fmt.Fprintf(sh.out, "Deleted %s.\n", id)

	return nil
}

func (sh *shell) reload(ctx context.Context) error {
	records, err := sh.syncer.LoadAll(ctx, sh.user.ID)
	if err != nil {
		return err
	}

	if sh.drafting {
		sh.drafting = false
		fmt.Fprintln(sh.out, "Open draft discarded.")
	}

	sh.cc.Logger.Debug("shell reloaded", slog.Int("records", len(records)))
	fmt.Fprintf(sh.out, "%d record(s).\n", len(records))

	return nil
}
