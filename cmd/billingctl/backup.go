package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crewtrack/billing-engine/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage the retained backup list",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, mgr, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		metas, err := mgr.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, m := range metas {
			fmt.Printf("%s  %s  %6d records  %8d bytes  %s\n",
				m.ID, m.Timestamp.Format("2006-01-02 15:04"),
				m.RecordCounts.Total(), m.DataSize, m.Name)
		}
		return nil
	},
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the live data into the retained list",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		desc, _ := cmd.Flags().GetString("description")

		st, mgr, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := mgr.Create(cmd.Context(), name, desc)
		if err != nil {
			return err
		}
		fmt.Printf("Created backup %s (%q, %d records)\n", b.ID, b.Name, b.RecordCounts.Total())
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <backup-id>",
	Short: "Delete one backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, mgr, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted backup %s\n", args[0])
		return nil
	},
}

var backupExportCmd = &cobra.Command{
	Use:   "export <backup-id>",
	Short: "Write one backup to a standalone JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		st, mgr, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		filename, data, err := mgr.Export(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if outPath == "" {
			outPath = filename
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Exported backup %s to %s\n", args[0], outPath)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a previously exported backup file",
	Long: `Import a previously exported backup file into the retained list.

The file is validated before anything is written: the payload, id, name, and
timestamp must all be present. Importing never touches the live data; use a
restore to make an imported backup live.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		st, mgr, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := mgr.Import(cmd.Context(), raw)
		if err != nil {
			return err
		}
		fmt.Printf("Imported backup %s (%q, %d records)\n", b.ID, b.Name, b.RecordCounts.Total())
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Replace the live data with a backup (interactive)",
	Long: `Replace the live data with a backup's payload.

This is the guarded, interactive path: three yes/no confirmations, then the
word RESTORE typed exactly, then the swap. Any other answer aborts with the
live data untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, mgr, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		session, err := mgr.BeginRestore(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		in := bufio.NewReader(cmd.InOrStdin())
		prompts := []string{
			"This will REPLACE ALL live data with the backup. Continue? [y/N] ",
			"The current live data will be lost unless backed up. Continue? [y/N] ",
			"This cannot be undone. Continue? [y/N] ",
		}
		for step, prompt := range prompts {
			fmt.Print(prompt)
			line, _ := in.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(line)) != "y" {
				session.Abort()
				fmt.Println("Aborted. Live data unchanged.")
				return nil
			}
			if err := session.Acknowledge(step); err != nil {
				return err
			}
		}

		fmt.Printf("Type %s to proceed: ", backup.ConfirmToken)
		line, _ := in.ReadString('\n')
		if err := session.ConfirmToken(strings.TrimSpace(line)); err != nil {
			session.Abort()
			fmt.Println("Token mismatch. Aborted, live data unchanged.")
			return nil
		}

		if err := session.Commit(cmd.Context()); err != nil {
			return fmt.Errorf("restore failed, live data unchanged: %w", err)
		}
		fmt.Println("Restore complete.")
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Factory-reset the live data (backups survive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")

		st, mgr, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := mgr.Reset(cmd.Context(), password); err != nil {
			return err
		}
		fmt.Println("Live data cleared. Backups retained.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(resetCmd)

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
	backupCmd.AddCommand(backupRestoreCmd)

	backupCreateCmd.Flags().String("name", "", "Backup name (default: timestamped)")
	backupCreateCmd.Flags().String("description", "", "Backup description")
	backupExportCmd.Flags().String("out", "", "Output file (default: the export filename)")
	resetCmd.Flags().String("password", "", "Reset password (RESET_PASSWORD must be set)")
}
