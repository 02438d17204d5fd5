package main

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/igstream/pkg/feeds"
	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/Sternrassler/igstream/pkg/stream"
	"github.com/spf13/cobra"
)

// streamFlags are the stream operators selectable on every feed command.
type streamFlags struct {
	limit    int
	unique   bool
	after    string
	before   string
	tailSkip int
	top      int
	topAttr  string
	sort     string
	desc     bool
	csv      string
	progress int
}

func (f *streamFlags) register(cmd *cobra.Command, defaultTopAttr string) {
	fl := cmd.Flags()
	fl.IntVar(&f.limit, "limit", -1, "stop after this many records (-1 for no limit)")
	fl.BoolVar(&f.unique, "unique", false, "drop records equal to an earlier one")
	fl.StringVar(&f.after, "after", "", "keep records created at or after this instant (ISO-8601)")
	fl.StringVar(&f.before, "before", "", "keep records created at or before this instant (ISO-8601)")
	fl.IntVar(&f.tailSkip, "tail-skip", 0, "end a feed after this many consecutive records outside the time window (default from config)")
	fl.IntVar(&f.top, "top", 0, "keep only the top N records by --top-attr")
	fl.StringVar(&f.topAttr, "top-attr", defaultTopAttr, "attribute ranked by --top")
	fl.StringVar(&f.sort, "sort", "", "sort the output by this attribute")
	fl.BoolVar(&f.desc, "desc", false, "sort descending")
	fl.StringVar(&f.csv, "csv", "", "write to this CSV file instead of stdout")
	fl.IntVar(&f.progress, "progress", 0, "log progress every N records, 0 to disable (default from config)")
}

// progressEvery returns the progress interval, falling back to the config.
func (a *app) progressEvery(cmd *cobra.Command, f *streamFlags) int {
	if cmd.Flags().Changed("progress") {
		return f.progress
	}
	return a.cfg.Stream.ProgressEvery
}

func (a *app) tailSkip(cmd *cobra.Command, f *streamFlags) int {
	if cmd.Flags().Changed("tail-skip") {
		return f.tailSkip
	}
	return a.cfg.Stream.TailSkip
}

// feedCommand builds a subcommand that streams records of type T.
func feedCommand[T model.Record](a *app, use, short, topAttr string, args cobra.PositionalArgs,
	build func(f *feeds.Feeds, args []string) (*stream.Stream[T], error)) *cobra.Command {

	flags := &streamFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, closeAll, err := a.open(ctx, a.progressEvery(cmd, flags))
			if err != nil {
				return err
			}
			defer closeAll()

			s, err := build(f, args)
			if err != nil {
				return err
			}
			s = applyFlags(s, flags, a.tailSkip(cmd, flags))

			n, err := writeOutput(cmd, s, flags)
			a.logger.Info().
				Int("records", n).
				Int64("skipped", f.Skipped()).
				Msg("Stream finished")
			return err
		},
	}
	flags.register(cmd, topAttr)
	return cmd
}

// applyFlags chains the selected operators: dedup, time window, ranking and
// limit, in that order.
func applyFlags[T model.Record](s *stream.Stream[T], f *streamFlags, tailSkip int) *stream.Stream[T] {
	if f.unique && f.top <= 0 {
		s = s.Unique()
	}
	if f.after != "" || f.before != "" {
		s = s.CreatedRangeSkip(f.after, f.before, tailSkip)
	}
	if f.top > 0 {
		s = s.Top(f.top, f.topAttr, f.unique)
	}
	if f.limit >= 0 {
		s = s.Limit(f.limit)
	}
	return s
}

// writeOutput writes s as CSV to the --csv file or stdout. With --sort the
// stream is materialised and sorted first.
func writeOutput[T model.Record](cmd *cobra.Command, s *stream.Stream[T], f *streamFlags) (int, error) {
	ctx := cmd.Context()
	if f.sort != "" {
		list, err := s.ToList(ctx, f.sort, f.desc)
		if err != nil {
			return 0, err
		}
		s = stream.New(stream.FromSlice(list...)).WithProgress(0, nil)
	}
	if f.csv != "" {
		return s.SaveCSV(f.csv).Write(ctx)
	}
	return s.WriteCSV(ctx, cmd.OutOrStdout())
}

func (a *app) tagCmd() *cobra.Command {
	return feedCommand(a, "tag <hashtag>...", "Stream the posts of hashtags", "like_count",
		cobra.MinimumNArgs(1),
		func(f *feeds.Feeds, args []string) (*stream.Stream[model.PostThumb], error) {
			return f.Tag(args...), nil
		})
}

func (a *app) locationCmd() *cobra.Command {
	return feedCommand(a, "location <location-id>...", "Stream the posts of locations", "like_count",
		cobra.MinimumNArgs(1),
		func(f *feeds.Feeds, args []string) (*stream.Stream[model.PostThumb], error) {
			ids, err := feeds.ParseLocationIDs(args)
			if err != nil {
				return nil, err
			}
			return f.Location(ids...), nil
		})
}

func (a *app) userCmd() *cobra.Command {
	return feedCommand(a, "user <username|user-id>...", "Stream the posts of users", "like_count",
		cobra.MinimumNArgs(1),
		func(f *feeds.Feeds, args []string) (*stream.Stream[model.PostThumb], error) {
			refs, err := feeds.ParseUserRefs(args)
			if err != nil {
				return nil, err
			}
			return f.User(refs...), nil
		})
}

func (a *app) commentsCmd() *cobra.Command {
	return feedCommand(a, "comments <shortcode>...", "Stream the comments of posts", "like_count",
		cobra.MinimumNArgs(1),
		func(f *feeds.Feeds, args []string) (*stream.Stream[model.Comment], error) {
			return f.Comments(trimAll(args)...), nil
		})
}

func (a *app) profileCmd() *cobra.Command {
	return feedCommand(a, "profile <username|user-id>...", "Look up user profiles", "followed_by_count",
		cobra.MinimumNArgs(1),
		func(f *feeds.Feeds, args []string) (*stream.Stream[model.User], error) {
			refs, err := feeds.ParseUserRefs(args)
			if err != nil {
				return nil, err
			}
			return f.Users(refs...), nil
		})
}

func (a *app) postCmd() *cobra.Command {
	return feedCommand(a, "post <shortcode>...", "Look up posts", "like_count",
		cobra.MinimumNArgs(1),
		func(f *feeds.Feeds, args []string) (*stream.Stream[model.Post], error) {
			refs := make([]model.PostRef, 0, len(args))
			for _, sc := range trimAll(args) {
				if sc == "" {
					return nil, fmt.Errorf("empty shortcode")
				}
				refs = append(refs, model.PostByShortcode(sc))
			}
			return f.Posts(refs...), nil
		})
}

func trimAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.TrimSpace(a)
	}
	return out
}
