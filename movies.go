package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cinevault/cinevault/internal/api"
	"github.com/cinevault/cinevault/internal/media"
	"github.com/cinevault/cinevault/internal/session"
)

// maxParallelDeletes bounds concurrent DELETE requests in `rm`.
const maxParallelDeletes = 4

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [id]",
		Short: "List your movies and shows, or show one in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a movie or show",
		Long: `Add a movie or show. The title may be given as arguments or with --title.
Dates are accepted in most common formats and stored as YYYY-MM-DD; a bare
year means January 1st of that year.`,
		RunE: runAdd,
	}

	addDraftFlags(cmd)

	return cmd
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a movie or show",
		Long:  "Replace the record with its current values plus the fields given as flags.",
		Args:  cobra.ExactArgs(1),
		RunE:  runEdit,
	}

	addDraftFlags(cmd)

	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete movies or shows",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRm,
	}
}

func addDraftFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "movie or show")
	cmd.Flags().String("title", "", "title")
	cmd.Flags().String("director", "", "director")
	cmd.Flags().String("budget", "", "budget")
	cmd.Flags().String("location", "", "filming location")
	cmd.Flags().String("duration", "", "duration")
	cmd.Flags().String("date", "", "release date")
}

// applyDraftFlags copies every explicitly set draft flag onto d.
func applyDraftFlags(cmd *cobra.Command, d *media.Draft) error {
	for _, field := range media.DraftFields {
		if !cmd.Flags().Changed(field) {
			continue
		}

		v, err := cmd.Flags().GetString(field)
		if err != nil {
			return err
		}

		if err := d.SetField(field, v); err != nil {
			return err
		}
	}

	return nil
}

// loadHome fetches the principal and the record list concurrently and seeds
// a Synchronizer with them. Both requests share one session renewal if the
// access token has expired.
func loadHome(ctx context.Context, client *api.Client, logger *slog.Logger) (*media.Synchronizer, *api.User, error) {
	if !client.LoggedIn() {
		return nil, nil, errNotLoggedIn
	}

	var (
		user    *api.User
		records []media.Record
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		user, err = client.Me(gctx)

		return err
	})

	g.Go(func() error {
		var err error
		records, err = client.ListMovies(gctx)

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	syncer := media.NewSynchronizer(client, logger)
	syncer.Replace(user.ID, records)

	return syncer, user, nil
}

func runLs(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	return cc.withClient(cmd.Context(), func(client *api.Client, _ session.Store) error {
		syncer, _, err := loadHome(cmd.Context(), client, cc.Logger)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return printRecords(cc.Out, syncer.Records(), cc.Flags.JSON)
		}

		r, ok := syncer.Get(media.ID(args[0]))
		if !ok {
			return fmt.Errorf("no record with id %s", args[0])
		}

		if cc.Flags.JSON {
			return printJSON(cc.Out, toRecordJSON(r))
		}

		printRecordDetail(cc.Out, r)

		return nil
	})
}

func runAdd(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	var d media.Draft
	if len(args) > 0 {
		d.Title = strings.Join(args, " ")
	}

	if err := applyDraftFlags(cmd, &d); err != nil {
		return err
	}

	return cc.withClient(cmd.Context(), func(client *api.Client, _ session.Store) error {
		syncer, _, err := loadHome(cmd.Context(), client, cc.Logger)
		if err != nil {
			return err
		}

		r, err := syncer.Create(cmd.Context(), d)
		if err != nil {
			return err
		}

		return reportRecord(cc, "Added", r)
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	id := media.ID(args[0])

	return cc.withClient(cmd.Context(), func(client *api.Client, _ session.Store) error {
		syncer, _, err := loadHome(cmd.Context(), client, cc.Logger)
		if err != nil {
			return err
		}

		d, err := syncer.BeginEdit(id)
		if err != nil {
			return err
		}

		if err := applyDraftFlags(cmd, &d); err != nil {
			syncer.CancelEdit()
			return err
		}

		r, err := syncer.Save(cmd.Context(), d)
		if err != nil {
			return err
		}

		return reportRecord(cc, "Updated", r)
	})
}

func reportRecord(cc *CLIContext, verb string, r media.Record) error {
	if cc.Flags.JSON {
		return printJSON(cc.Out, toRecordJSON(r))
	}

	cc.Statusf("%s %s %q (id %s).\n", verb, kindLabel(r.Kind), r.Title, r.ID)

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	return cc.withClient(cmd.Context(), func(client *api.Client, _ session.Store) error {
		syncer, _, err := loadHome(cmd.Context(), client, cc.Logger)
		if err != nil {
			return err
		}

		return deleteRecords(cmd.Context(), cc, syncer, args)
	})
}

// deleteRecords deletes ids with bounded parallelism. Every id is attempted;
// failures are reported together.
func deleteRecords(ctx context.Context, cc *CLIContext, syncer *media.Synchronizer, ids []string) error {
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(maxParallelDeletes)

	for i, id := range ids {
		g.Go(func() error {
			if err := syncer.Delete(ctx, media.ID(id)); err != nil {
				errs[i] = fmt.Errorf("%s: %s", id, describeError(err))
				return nil
			}

			cc.Statusf("Deleted %s.\n", id)

			return nil
		})
	}

	_ = g.Wait()

	return errors.Join(errs...)
}
