package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/routiner/internal/backup"
	"github.com/dukerupert/routiner/internal/database"
	"github.com/dukerupert/routiner/internal/server"
	"github.com/dukerupert/routiner/internal/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run, list and restore encrypted database backups",
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Upload a backup now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackupManager(func(m *backup.Manager, _ *store.BackupStore) error {
			id, err := m.RunNow(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d uploaded\n", id)
			return nil
		})
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackupManager(func(_ *backup.Manager, bs *store.BackupStore) error {
			backups, err := bs.List(50)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSIZE\tCREATED\tFILE")
			for _, b := range backups {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", b.ID, b.Status, b.SizeBytes, b.CreatedAt.Format("2006-01-02 15:04"), b.Filename)
			}
			return w.Flush()
		})
	},
}

var restoreOut string

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Download and decrypt a backup to a file",
	Long: `Downloads backup <id>, decrypts it and checks its integrity. The result is
written to --out; stop the server and move the file over the live database to
complete a restore.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid backup id %q", args[0])
		}
		return withBackupManager(func(m *backup.Manager, _ *store.BackupStore) error {
			if err := m.Restore(cmd.Context(), id, restoreOut); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d restored to %s\n", id, restoreOut)
			return nil
		})
	},
}

func init() {
	backupRestoreCmd.Flags().StringVarP(&restoreOut, "out", "o", "routiner-restored.db", "destination file")
	backupCmd.AddCommand(backupRunCmd, backupListCmd, backupRestoreCmd)
}

func withBackupManager(fn func(*backup.Manager, *store.BackupStore) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	bs := store.NewBackupStore(db)
	return fn(backup.NewManager(server.BackupConfig(cfg), db, bs, logger.With("component", "backup"), nil), bs)
}
