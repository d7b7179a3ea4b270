package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"article-sync-server/internal/config"
	"article-sync-server/internal/domain"
	"article-sync-server/internal/logging"
	"article-sync-server/internal/repository"
	"article-sync-server/internal/repository/migrations"
	"article-sync-server/internal/service"
	"article-sync-server/pkg/hash"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// services wires the sync services against the configured store. The caller
// must defer close().
type services struct {
	store     *repository.Store
	versions  *service.VersionService
	conflicts *service.ConflictService
}

func (s *services) close() { s.store.Close() }

func newServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Server.Env)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	hasher, err := hash.New(cfg.Hash.Algorithm)
	if err != nil {
		return nil, err
	}

	store, err := repository.NewStoreFromConfig(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	opts := service.Options{Hasher: hasher, Logger: logger}
	versions := service.NewVersionService(store.Versions, cfg.Versions.KeepCount, cfg.Versions.HistoryLimit, opts)

	return &services{
		store:     store,
		versions:  versions,
		conflicts: service.NewConflictService(store.Articles, versions, opts),
	}, nil
}

// The article lock lives in the server process, so writes from here are not
// serialized with a running server.
var errServerMayBeRunning = errors.New("this command writes to the store; stop the server and pass --offline")

func requireOffline(cmd *cobra.Command, args []string) error {
	if offline, _ := cmd.Flags().GetBool("offline"); !offline {
		return errServerMayBeRunning
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "articlesync",
	Short:        "Inspect and resolve article sync conflicts",
	SilenceUsage: true,
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List articles with an unresolved conflict",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		articles, err := s.conflicts.ListConflicts(cmd.Context())
		if err != nil {
			return err
		}

		if len(articles) == 0 {
			fmt.Println("No conflicts.")
			return nil
		}

		for _, a := range articles {
			remote := "-"
			if a.RemoteVersion != nil {
				remote = fmt.Sprintf("%d", *a.RemoteVersion)
			}
			fmt.Printf("%s\tlocal=%d\tremote=%s\t%s\n", a.ID, a.LocalVersion, remote, a.Title)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <article-id>",
	Short: "Show the conflict state of an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		status, err := s.conflicts.CheckConflict(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Article:        %s\n", status.ArticleID)
		fmt.Printf("Sync status:    %s\n", status.SyncStatus)
		fmt.Printf("Has conflict:   %t\n", status.HasConflict)
		fmt.Printf("Local version:  %d\n", status.LocalVersion)
		if status.RemoteVersion != nil {
			fmt.Printf("Remote version: %d\n", *status.RemoteVersion)
		}
		if status.RemoteContent != nil {
			fmt.Printf("Remote content: %d bytes\n", len(*status.RemoteContent))
		}
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:     "resolve <article-id>",
	Short:   "Resolve a conflict by keeping the local or the remote document",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireOffline,
	RunE: func(cmd *cobra.Command, args []string) error {
		use, _ := cmd.Flags().GetString("use")

		s, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		article, err := s.conflicts.ResolveConflict(cmd.Context(), &domain.ResolveConflictRequest{
			ArticleID:  args[0],
			Resolution: domain.Resolution(use),
		})
		if err != nil {
			return err
		}

		fmt.Printf("Resolved %s using %s copy: version %d, status %s\n", article.ID, use, article.LocalVersion, article.SyncStatus)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <article-id>",
	Short: "List archived versions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		versions, err := s.versions.GetVersionHistory(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}

		if len(versions) == 0 {
			fmt.Println("No versions.")
			return nil
		}

		for _, v := range versions {
			fmt.Printf("%s\tv%d\t%s\t%s\t%s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"), v.Version, v.Source, v.ContentHash, v.ID)
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:     "prune <article-id>",
	Short:   "Delete archived versions beyond the newest N",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireOffline,
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")

		s, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		removed, err := s.versions.CleanOldVersions(cmd.Context(), args[0], keep)
		if err != nil {
			return err
		}

		fmt.Printf("Removed %d versions, kept at most %d\n", removed, keep)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and report the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if s.store.SQL == nil {
			fmt.Println("Store has no SQL schema; indexes are ensured on open.")
			return nil
		}

		current, latest, dirty, err := migrations.Status(s.store.SQL)
		if err != nil {
			return err
		}

		fmt.Printf("Schema version %d of %d", current, latest)
		if dirty {
			fmt.Print(" (dirty)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("use", "", "Copy to keep: local or remote")
	resolveCmd.MarkFlagRequired("use")
	historyCmd.Flags().IntP("limit", "n", 0, "Maximum number of versions to show (default VERSION_HISTORY_LIMIT)")
	pruneCmd.Flags().Int("keep", 20, "Number of newest versions to keep")
	for _, c := range []*cobra.Command{resolveCmd, pruneCmd} {
		c.Flags().Bool("offline", false, "Confirm no server is writing to the store")
	}

	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(migrateCmd)
}
