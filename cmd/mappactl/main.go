// Command mappactl inspects and maintains a mappa database from the
// command line, without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mappa/internal/cli"
	"mappa/internal/config"
	"mappa/internal/core"
	"mappa/internal/storage"
)

var dbPath string

func main() {
	root := &cobra.Command{
		Use:           "mappactl",
		Short:         "Inspect and maintain a mappa database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database (defaults to MAPPA_DB_PATH)")
	root.AddCommand(filesCmd(), categoriesCmd(), summaryCmd(), resetCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openRepo() (*storage.SQLiteRepository, error) {
	cli.LoadEnvFile()
	path := dbPath
	if path == "" {
		path = config.Load().SQLiteDBPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	return storage.NewSQLiteRepository(path)
}

func filesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List uploaded files and their mapping progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			files, err := repo.ListFiles(context.Background())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No files uploaded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tROWS\tMAPPED\tACTIVE\tUPLOADED")
			for _, f := range files {
				active := ""
				if f.Active {
					active = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
					f.Name, f.TotalRows, f.MappedCount, active,
					f.UploadedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the category registry in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			names, err := repo.LoadCategories(context.Background())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No categories stored yet; the server seeds defaults on first start.")
				return nil
			}
			for i, name := range names {
				fmt.Printf("%2d  %s\n", i+1, name)
			}
			return nil
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print monthly spending totals per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			mapped, err := repo.LoadAllMappedRows(context.Background())
			if err != nil {
				return err
			}
			sum := core.BuildSummary(mapped)
			if sum.TotalMapped == 0 {
				fmt.Println("No mapped rows.")
				return nil
			}

			cats := make([]string, 0, len(sum.Categories))
			for c := range sum.Categories {
				cats = append(cats, c)
			}
			sort.Slice(cats, func(i, j int) bool {
				return strings.ToLower(cats[i]) < strings.ToLower(cats[j])
			})

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "CATEGORY\t%s\n", strings.Join(sum.Months, "\t"))
			for _, cat := range cats {
				cells := make([]string, len(sum.Months))
				for i, month := range sum.Months {
					if amount, ok := sum.Categories[cat][month]; ok {
						cells[i] = amount.String()
					} else {
						cells[i] = "-"
					}
				}
				fmt.Fprintf(w, "%s\t%s\n", cat, strings.Join(cells, "\t"))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\n%d mapped rows, %d without a usable date or amount, total %s\n",
				sum.TotalMapped, sum.Skipped, sum.Categories.Total())
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <file>",
		Short: "Delete a stored file and all of its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			name := args[0]
			if err := repo.DeleteFile(context.Background(), name); err != nil {
				return fmt.Errorf("reset %s: %w", name, err)
			}
			fmt.Printf("File %q deleted.\n", name)
			return nil
		},
	}
}
