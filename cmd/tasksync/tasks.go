package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sandeepkv93/tasksync/internal/api"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/spf13/cobra"
)

func tasksCmd(flags *globalFlags) *cobra.Command {
	var status, priority, query, sortBy string
	var limit int
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := model.TaskFilter{
				Query:    strings.TrimSpace(query),
				Status:   model.Status(status),
				Priority: model.Priority(priority),
				SortBy:   model.SortField(sortBy),
				Limit:    limit,
			}
			if err := filter.Validate(); err != nil {
				return err
			}

			a, err := openApp(*flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := a.context(cmd.Context())
			defer cancel()
			s, err := a.resume(ctx)
			if err != nil {
				return err
			}
			defer s.End()
			rec, err := a.reconciler(s)
			if err != nil {
				return err
			}
			rec.LoadLabels(ctx)

			pending := rec.Load(filter)
			if filter.Query != "" {
				pending = rec.Search(filter)
			}
			if c, _ := rec.Run(ctx, pending); c.Err != nil {
				if errors.Is(rec.Err(), api.ErrUnauthenticated) {
					return errors.New("session expired; run `tasksync login --email <address>` again")
				}
				return errors.New(rec.ErrorMessage())
			}
			local := filter
			local.Query = ""
			printTasks(cmd.OutOrStdout(), rec.Store().Visible(local))
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "pending or completed")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVarP(&query, "search", "q", "", "full-text search")
	cmd.Flags().StringVar(&sortBy, "sort", "", "title, due_date, priority or created_at")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of tasks")
	return cmd
}

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tDUE\tTITLE\tTAGS")
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Local().Format("2006-01-02")
		}
		tags := make([]string, 0, len(t.Tags))
		for _, tag := range t.Tags {
			tags = append(tags, tag.Name)
		}
		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\t%s\t%s\n", t.ID, done, t.Priority, due, t.Title, strings.Join(tags, ","))
	}
	_ = tw.Flush()
}
