package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"dops/internal/core"
	"dops/internal/slack"
)

// Report modes.
const (
	ReportDaily  = "daily"
	ReportWeekly = "weekly"
)

// reportStore is the slice of storage the report job needs.
type reportStore interface {
	ListTasksInRange(ctx context.Context, from, to core.Date) ([]core.Task, error)
	ListEntriesInRange(ctx context.Context, from, to core.Date) ([]core.LedgerEntry, error)
}

// reportSender posts the finished report; satisfied by *slack.Client.
type reportSender interface {
	Send(ctx context.Context, msg slack.Message) error
}

// ReportBuilder assembles the daily or weekly Slack report from tasks
// and ledger entries in the reporting window.
type ReportBuilder struct {
	storage reportStore
	sender  reportSender
}

func NewReportBuilder(storage reportStore, sender reportSender) *ReportBuilder {
	return &ReportBuilder{storage: storage, sender: sender}
}

// ReportStats holds the aggregates that go into the report message.
type ReportStats struct {
	TaskCount    int
	TotalHours   core.Hours
	TotalPrice   core.Money
	PendingCount int
	PendingPrice core.Money
	ByManager    []core.Bucket
	ByCategory   []core.Bucket
	ByClient     []core.Bucket
	EntryCount   int
	SpentByKind  []core.LedgerBucket
	NetByUser    []core.LedgerBucket
}

// ReportWindow returns the inclusive date range a report covers: the
// previous calendar day for daily mode, the seven days ending yesterday
// for weekly mode.
func ReportWindow(mode string, now time.Time) (from, to core.Date, err error) {
	yesterday := now.AddDate(0, 0, -1)
	to = core.NewDate(yesterday.Year(), int(yesterday.Month()), yesterday.Day())
	switch mode {
	case ReportDaily:
		from = to
	case ReportWeekly:
		start := now.AddDate(0, 0, -7)
		from = core.NewDate(start.Year(), int(start.Month()), start.Day())
	default:
		return core.Date{}, core.Date{}, fmt.Errorf("unknown report mode %q", mode)
	}
	return from, to, nil
}

// BuildStats aggregates tasks and ledger entries for the report.
func BuildStats(tasks []core.Task, entries []core.LedgerEntry) ReportStats {
	stats := ReportStats{
		TaskCount:  len(tasks),
		EntryCount: len(entries),
	}
	for _, t := range tasks {
		stats.TotalHours += t.Hours
		stats.TotalPrice.Won += t.Price.Won
		if t.Status == core.SettlePending {
			stats.PendingCount++
			stats.PendingPrice.Won += t.Price.Won
		}
	}
	stats.ByManager = core.SummarizeTasks(tasks, core.ByManager)
	stats.ByCategory = core.SummarizeTasks(tasks, core.ByCategory)
	stats.ByClient = core.SummarizeTasks(tasks, core.ByClient)
	stats.SpentByKind = core.SummarizeLedger(entries, core.LedgerByKind)
	stats.NetByUser = core.SummarizeLedger(entries, core.LedgerByUser)
	return stats
}

func bucketLines(label string, buckets []core.Bucket) []string {
	if len(buckets) == 0 {
		return nil
	}
	lines := []string{fmt.Sprintf("*%s*", label)}
	for _, b := range buckets {
		lines = append(lines, fmt.Sprintf("• %s: %d tasks, %.2fh, %s won", b.Key, b.Count, b.Hours.Float(), core.FormatWon(b.Price.Won)))
	}
	return lines
}

// FormatMessage renders the stats as a Slack Block Kit message.
func FormatMessage(mode string, from, to core.Date, stats ReportStats) slack.Message {
	var title string
	if mode == ReportWeekly {
		title = fmt.Sprintf("Weekly report %s ~ %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	} else {
		title = fmt.Sprintf("Daily report %s", to.Format("2006-01-02"))
	}

	taskLines := []string{
		fmt.Sprintf("*Tasks:* %d (%.2fh, %s won)", stats.TaskCount, stats.TotalHours.Float(), core.FormatWon(stats.TotalPrice.Won)),
		fmt.Sprintf("*Unsettled:* %d (%s won)", stats.PendingCount, core.FormatWon(stats.PendingPrice.Won)),
	}

	var groupLines []string
	groupLines = append(groupLines, bucketLines("By manager", stats.ByManager)...)
	groupLines = append(groupLines, bucketLines("By category", stats.ByCategory)...)
	groupLines = append(groupLines, bucketLines("By client", stats.ByClient)...)

	ledgerLines := []string{fmt.Sprintf("*Ledger entries:* %d", stats.EntryCount)}
	for _, b := range stats.SpentByKind {
		ledgerLines = append(ledgerLines, fmt.Sprintf("• %s: %d entries, net %s won", b.Key, b.Count, core.FormatWon(b.Total.Won)))
	}
	for _, b := range stats.NetByUser {
		if b.Total.Won == 0 {
			continue
		}
		ledgerLines = append(ledgerLines, fmt.Sprintf("• %s: %s won", b.Key, core.FormatWon(b.Total.Won)))
	}

	blocks := []slack.Block{
		slack.HeaderBlock(title),
		slack.SectionBlock(strings.Join(taskLines, "\n")),
	}
	if len(groupLines) > 0 {
		blocks = append(blocks, slack.SectionBlock(strings.Join(groupLines, "\n")))
	}
	blocks = append(blocks,
		slack.DividerBlock(),
		slack.SectionBlock(strings.Join(ledgerLines, "\n")))

	return slack.Message{Text: title, Blocks: blocks}
}

// Run builds and sends one report. Task and ledger reads run
// concurrently; either failing fails the report.
func (b *ReportBuilder) Run(ctx context.Context, mode string, now time.Time) error {
	from, to, err := ReportWindow(mode, now)
	if err != nil {
		return err
	}

	var (
		tasks   []core.Task
		entries []core.LedgerEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = b.storage.ListTasksInRange(gctx, from, to)
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = b.storage.ListEntriesInRange(gctx, from, to)
		if err != nil {
			return fmt.Errorf("load ledger entries: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	msg := FormatMessage(mode, from, to, BuildStats(tasks, entries))
	if err := b.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}
