package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/term"

	"github.com/trezcool/masomo-attendance/apps"
	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
	"github.com/trezcool/masomo-attendance/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// operator the admin CLI marks attendance as
var cliOperator = core.Operator{ID: "admin-cli", Username: "admin"}

type commandLine struct {
	conf    *core.Config
	backend *apps.Backend
	svc     *attendance.Service
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  roster -date DATE -class CLASS -section SECTION [-period N] - print a roster with its counts")
	fmt.Fprintln(cli.out, "  mark -date DATE -class CLASS -section SECTION [-period N] [-all STATUS] [-set ID=STATUS,...] [-cycle ID,...] [-dry-run] - mark & save attendance")
	fmt.Fprintln(cli.out, "  periods -class CLASS -section SECTION - print a class timetable")
	fmt.Fprintln(cli.out, "  breakdown -class CLASS -section SECTION [-from DATE] [-to DATE] - print the per subject period attendance")
	fmt.Fprintln(cli.out, "  migrate - create the attendance database & schema")
}

type selectionFlags struct {
	date, class, section *string
	period               *int
	askToken             *bool
}

func newSelectionFlags(fs *flag.FlagSet) selectionFlags {
	return selectionFlags{
		date:     fs.String("date", "", "The attendance date (YYYY-MM-DD)."),
		class:    fs.String("class", "", "The class name."),
		section:  fs.String("section", "", "The class section."),
		period:   fs.Int("period", 0, "The period; 0 for whole-day attendance."),
		askToken: fs.Bool("ask-token", false, "Prompt for the roster API bearer token."),
	}
}

func (sf selectionFlags) key() attendance.SelectionKey {
	return attendance.SelectionKey{Date: *sf.date, ClassName: *sf.class, Section: *sf.section, Period: *sf.period}
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	rosterCmd := flag.NewFlagSet("roster", flag.ContinueOnError)
	rosterSel := newSelectionFlags(rosterCmd)

	markCmd := flag.NewFlagSet("mark", flag.ContinueOnError)
	markSel := newSelectionFlags(markCmd)
	markAll := markCmd.String("all", "", "Mark every student with this status.")
	markSet := markCmd.String("set", "", "Comma separated ID=STATUS pairs.")
	markCycle := markCmd.String("cycle", "", "Comma separated student ids to advance to their next status.")
	markDryRun := markCmd.Bool("dry-run", false, "Print the changes without saving them.")

	periodsCmd := flag.NewFlagSet("periods", flag.ContinueOnError)
	periodsClass := periodsCmd.String("class", "", "The class name.")
	periodsSection := periodsCmd.String("section", "", "The class section.")
	periodsAskToken := periodsCmd.Bool("ask-token", false, "Prompt for the roster API bearer token.")

	breakdownCmd := flag.NewFlagSet("breakdown", flag.ContinueOnError)
	breakdownClass := breakdownCmd.String("class", "", "The class name.")
	breakdownSection := breakdownCmd.String("section", "", "The class section.")
	breakdownFrom := breakdownCmd.String("from", "", "First date (YYYY-MM-DD), open when empty.")
	breakdownTo := breakdownCmd.String("to", "", "Last date (YYYY-MM-DD), open when empty.")
	breakdownAskToken := breakdownCmd.Bool("ask-token", false, "Prompt for the roster API bearer token.")

	for _, fs := range []*flag.FlagSet{rosterCmd, markCmd, periodsCmd, breakdownCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "roster":
		if err := rosterCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if err := cli.promptToken(*rosterSel.askToken); err != nil {
			return err
		}
		return cli.printRoster(ctx, rosterSel.key())

	case "mark":
		if err := markCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *markAll == "" && *markSet == "" && *markCycle == "" {
			markCmd.Usage()
			return errHelp
		}
		if err := cli.promptToken(*markSel.askToken); err != nil {
			return err
		}
		return cli.mark(ctx, markSel.key(), markOptions{
			all:    *markAll,
			set:    splitList(*markSet),
			cycle:  splitList(*markCycle),
			dryRun: *markDryRun,
		})

	case "periods":
		if err := periodsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if err := cli.promptToken(*periodsAskToken); err != nil {
			return err
		}
		return cli.printPeriods(ctx, attendance.ClassRef{ClassName: *periodsClass, Section: *periodsSection})

	case "breakdown":
		if err := breakdownCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if err := cli.promptToken(*breakdownAskToken); err != nil {
			return err
		}
		q := attendance.PeriodRecordQuery{
			ClassRef: attendance.ClassRef{ClassName: *breakdownClass, Section: *breakdownSection},
			From:     *breakdownFrom,
			To:       *breakdownTo,
		}
		return cli.printBreakdown(ctx, q)

	case "migrate":
		return cli.migrate(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptToken(ask bool) error {
	if !ask {
		return nil
	}
	if cli.backend.Client == nil {
		return apps.NewArgumentError("-ask-token requires the http roster driver")
	}
	fmt.Fprint(cli.out, "Enter roster API token:")
	token, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(token) == 0 {
		return errHelp
	}
	cli.backend.Client.SetToken(strings.TrimSpace(string(token)))
	return nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (cli *commandLine) printRoster(ctx context.Context, key attendance.SelectionKey) error {
	sess := cli.svc.NewSession(cliOperator)
	if err := sess.Select(ctx, key); err != nil {
		return err
	}
	snap := sess.Snapshot()

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLL\tID\tNAME\tSTATUS\tRECORDED")
	for _, me := range snap.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", me.RollNumber, me.SubjectID, me.Name, me.Status, me.HasRecord)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, formatCounts(snap.Counts))
	return nil
}

func formatCounts(counts attendance.AggregateCounts) string {
	parts := []string{fmt.Sprintf("total: %d", counts.Total)}
	for _, st := range attendance.Statuses() {
		parts = append(parts, fmt.Sprintf("%s: %d", st, counts.Count(st)))
	}
	return strings.Join(parts, ", ")
}

type markOptions struct {
	all    string
	set    []string
	cycle  []string
	dryRun bool
}

func (cli *commandLine) mark(ctx context.Context, key attendance.SelectionKey, opts markOptions) error {
	sess := cli.svc.NewSession(cliOperator)
	if err := sess.Select(ctx, key); err != nil {
		return err
	}
	before := viewLines(sess.View())

	if opts.all != "" {
		status, err := attendance.ParseStatus(opts.all)
		if err != nil {
			return err
		}
		if err = sess.SetAll(status); err != nil {
			return err
		}
	}
	for _, pair := range opts.set {
		id, name := pair, ""
		if i := strings.Index(pair, "="); i >= 0 {
			id, name = pair[:i], pair[i+1:]
		}
		status, err := attendance.ParseStatus(name)
		if err != nil {
			return err
		}
		if err = sess.Set(id, status); err != nil {
			return err
		}
	}
	for _, id := range opts.cycle {
		if _, err := sess.Cycle(id); err != nil {
			return err
		}
	}

	if !sess.IsDirty() {
		fmt.Fprintln(cli.out, "nothing to save")
		return nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        before,
		B:        viewLines(sess.View()),
		FromFile: "committed",
		ToFile:   "pending",
		Context:  0,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cli.out, diff)
	if opts.dryRun {
		return nil
	}

	res, err := sess.Commit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "saved %d records of %s\n", res.SavedCount, key)
	fmt.Fprintln(cli.out, formatCounts(sess.Counts()))
	return nil
}

func viewLines(view []attendance.MergedEntry) []string {
	lines := make([]string, 0, len(view))
	for _, me := range view {
		lines = append(lines, fmt.Sprintf("%s %s %s\n", me.RollNumber, me.SubjectID, me.Status))
	}
	return lines
}

func (cli *commandLine) printPeriods(ctx context.Context, class attendance.ClassRef) error {
	defs, err := cli.svc.PeriodDefinitions(ctx, class)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tSTART\tEND\tSUBJECT\tTEACHER")
	for _, d := range defs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", d.Period, d.StartTime, d.EndTime, d.Subject, d.TeacherName)
	}
	return w.Flush()
}

func (cli *commandLine) printBreakdown(ctx context.Context, q attendance.PeriodRecordQuery) error {
	bd, err := cli.svc.Breakdown(ctx, q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tATTENDED\tTOTAL\tPERCENTAGE")
	for _, b := range bd.Subjects {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d%%\n", b.Subject, b.Attended, b.Total, b.Percentage)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if bd.Average != nil {
		fmt.Fprintf(cli.out, "average: %d%%\n", *bd.Average)
	} else {
		fmt.Fprintln(cli.out, "average: n/a")
	}
	return nil
}

// migrate creates the database (postgres only) and the attendance schema.
func (cli *commandLine) migrate(ctx context.Context) error {
	if cli.conf.Roster.Driver != core.RosterDriverDatabase {
		return apps.NewArgumentError(fmt.Sprintf("migrate requires the %s roster driver", core.RosterDriverDatabase))
	}
	if err := database.CreateIfNotExist(cli.conf); err != nil {
		return err
	}
	db, err := database.Open(cli.conf)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = database.CreateSchema(ctx, db); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s schema is up to date\n", cli.conf.Database.Engine)
	return nil
}
