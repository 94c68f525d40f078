package main

import (
	"context"
	"fmt"

	"github.com/hydrusband/fetchd/internal/formatter"
	"github.com/hydrusband/fetchd/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints completed job records from the local database.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, history, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	limit := int(cmd.Int("limit"))
	records, err := history.List(limit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if exportPath := cmd.String("export"); exportPath != "" {
		path, err := formatter.WriteCSVExport(records, exportPath)
		if err != nil {
			return fmt.Errorf("failed to export history: %w", err)
		}
		return r.writePlain("exported %d records to %s\n", len(records), path)
	}

	switch cmd.String("format") {
	case "json":
		return r.writeJSON(records, cmd.Bool("pretty"))
	case "csv":
		out, err := formatter.ExportToCSV(records)
		if err != nil {
			return fmt.Errorf("failed to render history: %w", err)
		}
		_, err = r.output.Write(out)
		return err
	case "markdown":
		_, err := r.output.Write(formatter.ExportToMarkdown(records))
		return err
	case "text":
		_, err := r.output.Write(formatter.ExportToText(records))
		return err
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, cmd.String("format"))
	}
}

// HistoryDelete removes a single record from the local database.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: record id required", shared.ErrMissingArgument)
	}

	db, history, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := history.Delete(id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return r.writeJSON(map[string]any{"id": id, "deleted": deleted}, true)
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect completed job records",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List completed job records",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of records (0 for all)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, json, csv, markdown",
						Value:   "text",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "export",
						Usage: "Write records to a CSV file instead of printing",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "delete",
				Usage: "Delete a record by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}
