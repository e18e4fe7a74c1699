package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/borrowd/pkg/client"
)

var (
	Version = "v0.1.0"
	Commit  = "unknown"
)

type cliOptions struct {
	endpoint string
	jsonOut  bool
	timeout  time.Duration
}

func (o *cliOptions) client() *client.Client {
	return client.NewClient(o.endpoint)
}

func (o *cliOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "borrow",
		Short:         "Find who can lend you something through your friends",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.endpoint, "endpoint", os.Getenv("BORROWD_URL"), "borrowd base URL (default http://127.0.0.1:8090)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print raw JSON")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		newFriendsCmd(opts),
		newKnowsCmd(opts),
		newPathCmd(opts),
		newPeopleCmd(opts),
		newAddCmd(opts),
		newStatsCmd(opts),
		newEventsCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

func newFriendsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "friends <name>",
		Short: "List the friends of a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			friends, err := opts.client().Friends(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string][]string{"friends": friends})
			}
			for _, f := range friends {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
}

func newKnowsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "knows <person1> <person2>",
		Short: "Check whether two people are direct friends",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			knows, err := opts.client().Knows(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]bool{"knows": knows})
			}
			if knows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s knows %s\n", args[0], args[1])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s does not know %s\n", args[0], args[1])
			}
			return nil
		},
	}
}

func newPathCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "path <name> <item>",
		Aliases: []string{"borrow"},
		Short:   "Find the shortest chain of friends to someone who owns an item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			path, err := opts.client().BorrowPath(ctx, args[0], args[1])
			if errors.Is(err, client.ErrNoPath) {
				return fmt.Errorf("nobody reachable from %s owns %s", args[0], args[1])
			}
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d hops)\n", strings.Join(path.Path, " -> "), path.Hops)
			return nil
		},
	}
}

func newPeopleCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "people [name]",
		Short: "List everyone, or show one person",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			var people []client.Person
			if len(args) == 1 {
				p, err := opts.client().Person(ctx, args[0])
				if err != nil {
					return err
				}
				people = []client.Person{p}
			} else {
				var err error
				if people, err = opts.client().People(ctx); err != nil {
					return err
				}
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), people)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFRIENDS\tPOSSESSIONS")
			for _, p := range people {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, strings.Join(p.Friends, ","), strings.Join(p.Possessions, ","))
			}
			return w.Flush()
		},
	}
	return cmd
}

func newAddCmd(opts *cliOptions) *cobra.Command {
	add := &cobra.Command{
		Use:   "add",
		Short: "Register people, friendships and possessions",
	}

	report := func(cmd *cobra.Command, eventID string, err error) error {
		var unknown *client.UnknownPersonError
		if errors.As(err, &unknown) {
			return fmt.Errorf("register first: %s", strings.Join(unknown.Names, ", "))
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok (%s)\n", eventID)
		return nil
	}

	add.AddCommand(
		&cobra.Command{
			Use:   "person <name>",
			Short: "Register a person",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := opts.context(cmd)
				defer cancel()
				id, err := opts.client().AddPerson(ctx, args[0])
				return report(cmd, id, err)
			},
		},
		&cobra.Command{
			Use:   "friendship <person1> <person2>",
			Short: "Make two registered people friends",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := opts.context(cmd)
				defer cancel()
				id, err := opts.client().AddFriendship(ctx, args[0], args[1])
				return report(cmd, id, err)
			},
		},
		&cobra.Command{
			Use:   "possession <name> <item>",
			Short: "Record that a registered person owns an item",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := opts.context(cmd)
				defer cancel()
				id, err := opts.client().AddPossession(ctx, args[0], args[1])
				return report(cmd, id, err)
			},
		},
	)
	return add
}

func newStatsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show graph counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			stats, err := opts.client().Stats(ctx)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "people=%d friendships=%d possessions=%d revision=%d\n",
				stats.People, stats.Friendships, stats.Possessions, stats.Revision)
			return nil
		},
	}
}

func newEventsCmd(opts *cliOptions) *cobra.Command {
	var filter client.EventsOptions

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the mutation journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			events, err := opts.client().Events(ctx, filter)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), events)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tSUBJECT\tSOURCE")
			for _, e := range events {
				subject := e.Subject.Identity
				if e.Subject.Counterpart != "" {
					subject += "," + e.Subject.Counterpart
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.TsEvent.Format(time.RFC3339), e.EventType, subject, e.Source.OriginKind)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of events")
	cmd.Flags().StringVar(&filter.Identity, "identity", "", "only events touching this person")
	cmd.Flags().StringSliceVar(&filter.Types, "type", nil, "only these event types")
	return cmd
}

func newHealthCmd(opts *cliOptions) *cobra.Command {
	var attempts int

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the daemon is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			c := opts.client()
			if attempts > 1 {
				if err := c.WaitReady(ctx, attempts); err != nil {
					return err
				}
			}
			status, err := c.Ping(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.Status)
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "wait", 1, "ping up to this many times with backoff")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "borrow:", err)
		os.Exit(1)
	}
}
