package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ripixel/fitglue-community/pkg/bootstrap"
	"github.com/ripixel/fitglue-community/pkg/domain/social"
	"github.com/ripixel/fitglue-community/pkg/feed"
	infrapubsub "github.com/ripixel/fitglue-community/pkg/infrastructure/pubsub"
	"github.com/ripixel/fitglue-community/pkg/pagination"
	"github.com/ripixel/fitglue-community/pkg/reaction"
	"github.com/ripixel/fitglue-community/pkg/storage/sqlite"
	"github.com/ripixel/fitglue-community/pkg/view"
)

const cliTokenKey = "feedctl-local"

// NewRootCmd builds the feedctl command tree.
func NewRootCmd() *cobra.Command {
	defaultDB := os.Getenv("SQLITE_PATH")
	if defaultDB == "" {
		defaultDB = "fitglue-community.db"
	}

	cmd := &cobra.Command{
		Use:           "feedctl",
		Short:         "Drive the community feed against a local SQLite store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().String("db", defaultDB, "path to the SQLite database")
	cmd.PersistentFlags().String("user", "u1", "acting user id")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSeedCmd(),
		newPostCmd(),
		newPageCmd(),
		newLikeCmd(true),
		newLikeCmd(false),
		newCommentCmd(),
	)
	return cmd
}

// session is one command's view onto the local store.
type session struct {
	store  *sqlite.Store
	feed   *feed.Service
	user   string
	json   bool
	out    io.Writer
	logger *slog.Logger
}

func openSession(cmd *cobra.Command) (*session, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	user, _ := cmd.Flags().GetString("user")
	asJSON, _ := cmd.Flags().GetBool("json")
	level, _ := cmd.Flags().GetString("log-level")

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), bootstrap.GetSlogHandlerOptions(bootstrap.ParseLevel(level)))
	logger := slog.New(&bootstrap.ComponentHandler{Handler: handler})

	store, err := sqlite.Open(cmd.Context(), dbPath)
	if err != nil {
		return nil, err
	}
	notifier := infrapubsub.NewEventNotifier(&infrapubsub.LogPublisher{Logger: logger}, logger)
	svc := feed.NewService(store, notifier, pagination.NewTokenCodec([]byte(cliTokenKey)), feed.Options{Logger: logger})
	return &session{store: store, feed: svc, user: strings.TrimSpace(user), json: asJSON, out: cmd.OutOrStdout(), logger: logger}, nil
}

func (s *session) Close() { s.store.Close() }

func (s *session) newView(pageSize int, delay time.Duration) (*view.View, error) {
	return view.New(view.Viewer{UserID: s.user}, s.feed, view.Options{
		PageSize:    pageSize,
		CommitDelay: delay,
		Logger:      s.logger,
		OnError: func(err error) {
			fmt.Fprintln(s.out, "write failed:", err)
		},
	})
}

func (s *session) emit(v interface{}, text string) error {
	if s.json {
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(s.out, text)
	return err
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create sample posts plus comments and likes by --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			posts, _ := cmd.Flags().GetInt("posts")
			perPost, _ := cmd.Flags().GetInt("comments")
			author, _ := cmd.Flags().GetString("author")
			ctx := cmd.Context()

			var ids []string
			for i := 0; i < posts; i++ {
				p := &social.Post{AuthorID: author, Title: fmt.Sprintf("Workout #%d", i+1)}
				if err := s.store.CreatePost(ctx, p); err != nil {
					return err
				}
				ids = append(ids, p.ID)
				for j := 0; j < perPost; j++ {
					if _, err := s.feed.AddComment(ctx, social.NewComment{PostID: p.ID, AuthorID: s.user, Text: fmt.Sprintf("Set %d done", j+1)}); err != nil {
						return err
					}
				}
				if i%2 == 0 {
					if _, err := s.feed.SetReaction(ctx, p.ID, s.user, social.ReactionLiked); err != nil {
						return err
					}
				}
			}
			return s.emit(map[string]interface{}{"posts": ids}, fmt.Sprintf("seeded %d posts: %s", len(ids), strings.Join(ids, ", ")))
		},
	}
	cmd.Flags().Int("posts", 3, "number of posts")
	cmd.Flags().Int("comments", 3, "comments by --user on each post")
	cmd.Flags().String("author", "coach", "author of the seeded posts")
	return cmd
}

func newPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage posts",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a post authored by --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			title, _ := cmd.Flags().GetString("title")
			body, _ := cmd.Flags().GetString("body")
			p := &social.Post{AuthorID: s.user, Title: title, Body: body}
			if err := s.store.CreatePost(cmd.Context(), p); err != nil {
				return err
			}
			return s.emit(p, p.ID)
		},
	}
	create.Flags().String("title", "", "post title")
	create.Flags().String("body", "", "post body")
	_ = create.MarkFlagRequired("title")
	cmd.AddCommand(create)
	return cmd
}

func newPageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Print pages of --user's activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			pages, _ := cmd.Flags().GetInt("pages")
			size, _ := cmd.Flags().GetInt("size")
			v, err := s.newView(size, 0)
			if err != nil {
				return err
			}
			defer v.Close()

			ctx := cmd.Context()
			page, err := v.Pager().Load(ctx)
			if err != nil {
				return err
			}
			var all []pagination.Page
			for i := 0; ; i++ {
				all = append(all, page)
				if i+1 >= pages || !page.HasNext {
					break
				}
				if page, err = v.Pager().Next(ctx); err != nil {
					return err
				}
			}
			return s.emit(all, formatPages(all))
		},
	}
	cmd.Flags().Int("pages", 1, "number of pages to walk forward")
	cmd.Flags().Int("size", pagination.DefaultPageSize, "items per page")
	return cmd
}

func formatPages(pages []pagination.Page) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "page %d (%d items, more=%t)\n", p.Index+1, len(p.Items), p.HasNext)
		for _, it := range p.Items {
			switch it.Kind {
			case social.KindComment:
				fmt.Fprintf(&b, "  %s  comment on %s: %q\n", it.CreatedAt.Format(time.RFC3339), it.PostID, it.Text)
			default:
				fmt.Fprintf(&b, "  %s  liked %s\n", it.CreatedAt.Format(time.RFC3339), it.PostID)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func newLikeCmd(liked bool) *cobra.Command {
	use, short := "like <post-id>", "Like a post as --user"
	if !liked {
		use, short = "unlike <post-id>", "Remove --user's like from a post"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			delay, _ := cmd.Flags().GetDuration("delay")
			v, err := s.newView(0, delay)
			if err != nil {
				return err
			}
			defer v.Close()

			ctx := cmd.Context()
			if _, err := v.SetLike(ctx, args[0], liked); err != nil {
				return err
			}
			waitCtx, cancel := context.WithTimeout(ctx, delay+30*time.Second)
			defer cancel()
			if err := v.Wait(waitCtx); err != nil {
				return err
			}

			c, err := v.Reaction(ctx, args[0])
			if err != nil {
				return err
			}
			snap := c.Snapshot()
			out := map[string]interface{}{"post_id": args[0], "liked": snap.ServerValue, "like_count": snap.ServerCount}
			return s.emit(out, fmt.Sprintf("%s liked=%t likes=%d", args[0], snap.ServerValue, snap.ServerCount))
		},
	}
	cmd.Flags().Duration("delay", reaction.DefaultDelay, "quiet period before the like is written")
	return cmd
}

func newCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment <post-id> <text>",
		Short: "Comment on a post as --user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			parent, _ := cmd.Flags().GetString("parent")
			v, err := s.newView(0, 0)
			if err != nil {
				return err
			}
			defer v.Close()

			ctx := cmd.Context()
			created, err := v.AddComment(ctx, args[0], strings.Join(args[1:], " "), parent, "")
			if err != nil {
				return err
			}
			composer, err := v.Comments(ctx, args[0])
			if err != nil {
				return err
			}
			return s.emit(created, fmt.Sprintf("%s (comments=%d)", created.ID, composer.Count()))
		},
	}
	cmd.Flags().String("parent", "", "comment id this replies to")
	return cmd
}
