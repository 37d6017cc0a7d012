package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/tasksync/internal/model"
)

const previewCount = 5

// RecurrencePreview holds the next occurrences of the last rule set from
// the palette.
type RecurrencePreview struct {
	TaskID   int64
	RuleID   int64
	Pattern  model.RecurrencePattern
	Interval int
	Lines    []string
	Saved    bool
	Err      string
}

// previewRecurrence computes occurrences locally, anchored at the task's
// due date when it has one.
func previewRecurrence(rule model.RecurringTask, now time.Time) RecurrencePreview {
	p := RecurrencePreview{TaskID: rule.OriginalTaskID, Pattern: rule.Pattern, Interval: rule.Interval}
	at, err := rule.Preview(now, previewCount)
	if err != nil {
		p.Err = err.Error()
		return p
	}
	for _, t := range at {
		p.Lines = append(p.Lines, t.Local().Format("Mon 2006-01-02 15:04"))
	}
	return p
}

func (m *Model) handleRecurring(msg recurringMsg) {
	if msg.err != nil {
		m.Recurrence.Err = failure("save recurrence", msg.err)
		m.Status = StatusBar{Text: m.Recurrence.Err, IsError: true}
		return
	}
	r := msg.recurring
	if r.OriginalTaskID == m.Recurrence.TaskID {
		m.Recurrence.Saved = true
		m.Recurrence.RuleID = r.ID
	}
	m.RecurringRules = append(m.RecurringRules, r)
	m.Status = StatusBar{Text: fmt.Sprintf("task #%d repeats %s", r.OriginalTaskID, describeRule(r.Pattern, r.Interval))}
}

func (m *Model) handleRecurringList(msg recurringListMsg) {
	if msg.err != nil {
		m.Status = StatusBar{Text: failure("load recurring tasks", msg.err), IsError: true}
		return
	}
	m.RecurringRules = msg.items
	m.Status = StatusBar{Text: fmt.Sprintf("%d recurring rules", len(msg.items))}
}

func (m *Model) handleRecurringDeleted(msg recurringDeletedMsg) {
	if msg.err != nil {
		m.Status = StatusBar{Text: failure("delete recurring task", msg.err), IsError: true}
		return
	}
	kept := m.RecurringRules[:0:0]
	for _, r := range m.RecurringRules {
		if r.ID != msg.id {
			kept = append(kept, r)
		}
	}
	m.RecurringRules = kept
	if m.Recurrence.RuleID == msg.id {
		m.Recurrence = RecurrencePreview{}
	}
	m.Status = StatusBar{Text: fmt.Sprintf("deleted recurring rule #%d", msg.id)}
}

func describeRule(p model.RecurrencePattern, interval int) string {
	if interval <= 1 {
		return string(p)
	}
	unit := map[model.RecurrencePattern]string{
		model.RecurrenceDaily:   "days",
		model.RecurrenceWeekly:  "weeks",
		model.RecurrenceMonthly: "months",
		model.RecurrenceYearly:  "years",
	}[p]
	return fmt.Sprintf("every %d %s", interval, unit)
}

func (m Model) renderRecurrencePreview() string {
	p := m.Recurrence
	var lines []string
	if p.TaskID == 0 {
		lines = append(lines, "recurrence:", "(use /recur <id> <pattern> [interval])")
	} else {
		state := "pending"
		if p.Saved {
			state = fmt.Sprintf("saved as rule #%d", p.RuleID)
		}
		lines = append(lines, fmt.Sprintf("recurrence for task #%d: %s (%s)", p.TaskID, describeRule(p.Pattern, p.Interval), state))
		if p.Err != "" {
			lines = append(lines, "error: "+p.Err)
		}
		for _, l := range p.Lines {
			lines = append(lines, "- "+l)
		}
	}
	if len(m.RecurringRules) > 0 {
		lines = append(lines, "", "rules:")
		for _, r := range m.RecurringRules {
			lines = append(lines, fmt.Sprintf("#%d task #%d %s", r.ID, r.OriginalTaskID, describeRule(r.Pattern, r.Interval)))
		}
	}
	return strings.Join(lines, "\n")
}
