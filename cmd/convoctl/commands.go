package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/convo-chat/convo/internal/auth"
	"github.com/convo-chat/convo/internal/database"
	"github.com/convo-chat/convo/internal/service"
	"github.com/convo-chat/convo/internal/store"
)

type dbFlags struct {
	driver  string
	dsn     string
	migrate bool
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "convoctl",
		Short:         "Administer convo rooms and tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	db := &dbFlags{}
	root.PersistentFlags().StringVar(&db.driver, "driver", envOr("DB_DRIVER", "mysql"), "database driver (mysql, postgres, sqlite)")
	root.PersistentFlags().StringVar(&db.dsn, "dsn", os.Getenv("DB_DSN"), "database DSN")
	root.PersistentFlags().BoolVar(&db.migrate, "migrate", false, "apply schema migrations before running the command")

	root.AddCommand(newTokenCmd(), newRoomsCmd(db), newMessagesCmd(db))
	return root
}

func newTokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
		p      auth.Payload
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or JWT_SECRET)")
			}
			tok, err := auth.NewSigner(secret, ttl).Sign(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&p.UserID, "user-id", "", "user id claim")
	cmd.Flags().StringVar(&p.Username, "username", "", "username claim")
	cmd.Flags().StringVar(&p.Email, "email", "", "email claim")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newRoomsCmd(flags *dbFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage rooms",
	}

	create := &cobra.Command{
		Use:   "create USER_ID USERNAME",
		Short: "Create the personal room of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), flags, func(db *sql.DB, d store.Dialect) error {
				room, err := service.NewRoomService(store.NewRoomStore(db, d)).Create(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), room)
			})
		},
	}

	show := &cobra.Command{
		Use:   "show ROOM_ID",
		Short: "Show a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), flags, func(db *sql.DB, d store.Dialect) error {
				room, err := service.NewRoomService(store.NewRoomStore(db, d)).FindByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), room)
			})
		},
	}

	cmd.AddCommand(create, show)
	return cmd
}

func newMessagesCmd(flags *dbFlags) *cobra.Command {
	var p service.Pagination
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Inspect room history",
	}
	list := &cobra.Command{
		Use:   "list ROOM_ID",
		Short: "List one page of a room's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), flags, func(db *sql.DB, d store.Dialect) error {
				msgs, err := service.NewMessageService(store.NewMessageStore(db, d)).GetMessagesByRoomID(cmd.Context(), args[0], p)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), msgs)
			})
		},
	}
	list.Flags().IntVar(&p.Page, "page", 1, "page number, starting at 1")
	list.Flags().IntVar(&p.ItemsPerPage, "items-per-page", service.DefaultItemsPerPage, "messages per page")
	cmd.AddCommand(list)
	return cmd
}

func withDB(ctx context.Context, flags *dbFlags, fn func(*sql.DB, store.Dialect) error) error {
	if flags.dsn == "" {
		return fmt.Errorf("a database DSN is required (--dsn or DB_DSN)")
	}
	dialect, err := store.DialectFor(flags.driver)
	if err != nil {
		return err
	}
	db, err := database.Open(flags.driver, flags.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if flags.migrate {
		log := logrus.New()
		log.SetOutput(io.Discard)
		if err := database.RunMigrations(ctx, db, flags.driver, log); err != nil {
			return err
		}
	}
	return fn(db, dialect)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
