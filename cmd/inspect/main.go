package main

import (
	"chat-presence/domain"
	"chat-presence/repositories"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
)

type options struct {
	dbPath string
	what   string
	viewer string
	limit  int
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	flagSet.StringVar(&opts.dbPath, "db", "./data/badger", "path to the badger directory")
	flagSet.StringVar(&opts.what, "what", "all", "what to dump: participants, messages or all")
	flagSet.StringVar(&opts.viewer, "viewer", "", "only show messages this participant may read")
	flagSet.IntVar(&opts.limit, "limit", 0, "only show the last N messages (0 for all)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if !lo.Contains([]string{"participants", "messages", "all"}, opts.what) {
		return fmt.Errorf("unknown --what %q", opts.what)
	}

	// Read only, so it can run next to a live server
	db, err := badger.Open(badger.DefaultOptions(opts.dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return dump(db, opts, out)
}

func dump(db *badger.DB, opts options, out io.Writer) error {
	if opts.what != "messages" {
		participants, err := repositories.NewParticipantRepository(db).List()
		if err != nil {
			return err
		}
		table := newTable(out, []string{"Name", "Last Seen", "Silent For"})
		for _, p := range participants {
			table.Append([]string{
				p.Name,
				p.LastSeen.Format(time.RFC3339),
				time.Since(p.LastSeen).Truncate(time.Second).String(),
			})
		}
		table.Render()
	}

	if opts.what != "participants" {
		messages, err := repositories.ReadMessages(db)
		if err != nil {
			return err
		}
		if opts.viewer != "" {
			messages = lo.Filter(messages, func(m domain.Message, _ int) bool { return m.VisibleTo(opts.viewer) })
		}
		if opts.limit > 0 && len(messages) > opts.limit {
			messages = messages[len(messages)-opts.limit:]
		}
		table := newTable(out, []string{"Seq", "ID", "Time", "Kind", "From", "To", "Text"})
		for _, m := range messages {
			table.Append([]string{
				fmt.Sprint(m.Seq),
				m.ID.String()[:8],
				m.Time,
				string(m.Kind),
				m.From,
				m.To,
				m.Text,
			})
		}
		table.Render()
	}
	return nil
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
