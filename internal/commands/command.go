package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/tasksync/internal/model"
)

type Type string

const (
	TypeAdd      Type = "add"
	TypeDone     Type = "done"
	TypeEdit     Type = "edit"
	TypeRemove   Type = "rm"
	TypeTag      Type = "tag"
	TypeUntag    Type = "untag"
	TypeFilter   Type = "filter"
	TypeSearch   Type = "search"
	TypeCategory Type = "category"
	TypeLabel    Type = "label"
	TypeRecur    Type = "recur"
	TypeRemind   Type = "remind"
	TypeSuggest  Type = "suggest"
	TypeReload   Type = "reload"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type AddArgs struct {
	Input  model.TaskInput
	TagIDs []int64
}

type TaskArgs struct {
	TaskID int64
}

type EditArgs struct {
	TaskID int64
	Patch  model.TaskPatch
}

type TagArgs struct {
	TaskID int64
	TagIDs []int64
}

type FilterArgs struct {
	Filter model.TaskFilter
}

type SearchArgs struct {
	Query string
}

type LabelAction string

const (
	LabelAdd    LabelAction = "add"
	LabelRemove LabelAction = "rm"
)

// LabelArgs serves both /category and /label. Color is only read for
// categories.
type LabelArgs struct {
	Action LabelAction
	ID     int64
	Name   string
	Color  string
}

type RecurAction string

const (
	RecurSet      RecurAction = "set"
	RecurList     RecurAction = "list"
	RecurRemove   RecurAction = "rm"
	RecurGenerate RecurAction = "gen"
)

// RecurArgs carries a new rule for RecurSet; RuleID and Count serve the
// other actions.
type RecurArgs struct {
	Action   RecurAction
	TaskID   int64
	Pattern  model.RecurrencePattern
	Interval int
	RuleID   int64
	Count    int
}

type RemindArgs struct {
	TaskID int64
	At     time.Time
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Task   *TaskArgs
	Edit   *EditArgs
	Tag    *TagArgs
	Filter *FilterArgs
	Search *SearchArgs
	Label  *LabelArgs
	Recur  *RecurArgs
	Remind *RemindArgs
}

// Parse reads one palette line. now anchors relative reminder times.
func Parse(input string, now time.Time) (Command, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts, err := split(raw)
	if err != nil {
		return Command{}, err
	}
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone, TypeRemove:
		return parseTask(input, Type(head), args)
	case TypeEdit:
		return parseEdit(input, args)
	case TypeTag, TypeUntag:
		return parseTag(input, Type(head), args)
	case TypeFilter:
		return parseFilter(input, args)
	case TypeSearch:
		return parseSearch(input, args)
	case TypeCategory, TypeLabel:
		return parseLabel(input, Type(head), args)
	case TypeRecur:
		return parseRecur(input, args)
	case TypeRemind:
		return parseRemind(input, args, now)
	case TypeSuggest, TypeReload:
		return Command{Type: Type(head), Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	in := model.TaskInput{Priority: model.PriorityMedium}
	var tagIDs []int64
	var words []string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "!") && len(arg) > 1:
			p := model.Priority(strings.ToLower(arg[1:]))
			if !p.IsValid() {
				return Command{}, invalid("unknown priority %q", arg[1:])
			}
			in.Priority = p
		case strings.HasPrefix(arg, "#") && len(arg) > 1:
			id, err := parseID("tag", arg[1:])
			if err != nil {
				return Command{}, err
			}
			tagIDs = append(tagIDs, id)
		default:
			words = append(words, arg)
		}
	}
	// An empty title is left for the reconciler to reject with its own message.
	in.Title = strings.TrimSpace(strings.Join(words, " "))
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Input: in, TagIDs: tagIDs}}, nil
}

func parseTask(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires a task id", typ)
	}
	id, err := parseID("task", args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: typ, Raw: raw, Task: &TaskArgs{TaskID: id}}, nil
}

func parseEdit(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("edit requires a task id and field=value pairs")
	}
	id, err := parseID("task", args[0])
	if err != nil {
		return Command{}, err
	}
	var patch model.TaskPatch
	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Command{}, invalid("expected field=value, got %q", pair)
		}
		switch strings.ToLower(key) {
		case model.FieldTitle:
			patch.Title = &value
		case model.FieldDescription:
			patch.Description = &value
		case model.FieldCompleted:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Command{}, invalid("completed must be true or false")
			}
			patch.Completed = &b
		case model.FieldPriority:
			p := model.Priority(strings.ToLower(value))
			if !p.IsValid() {
				return Command{}, invalid("unknown priority %q", value)
			}
			patch.Priority = &p
		case model.FieldCategoryID, "category":
			cid, err := parseID("category", value)
			if err != nil {
				return Command{}, err
			}
			patch.CategoryID = &cid
		case model.FieldDueDate, "due":
			due, err := parseDate(value)
			if err != nil {
				return Command{}, err
			}
			patch.DueDate = &due
		default:
			return Command{}, invalid("unknown field %q", key)
		}
	}
	return Command{Type: TypeEdit, Raw: raw, Edit: &EditArgs{TaskID: id, Patch: patch}}, nil
}

func parseTag(raw string, typ Type, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("%s requires a task id and at least one tag id", typ)
	}
	id, err := parseID("task", args[0])
	if err != nil {
		return Command{}, err
	}
	tagIDs := make([]int64, 0, len(args)-1)
	for _, arg := range args[1:] {
		tid, err := parseID("tag", strings.TrimPrefix(arg, "#"))
		if err != nil {
			return Command{}, err
		}
		tagIDs = append(tagIDs, tid)
	}
	return Command{Type: typ, Raw: raw, Tag: &TagArgs{TaskID: id, TagIDs: tagIDs}}, nil
}

// parseFilter reads key:value terms. No terms clears the filter.
func parseFilter(raw string, args []string) (Command, error) {
	var f model.TaskFilter
	for _, term := range args {
		key, value, ok := strings.Cut(term, ":")
		if !ok || value == "" {
			return Command{}, invalid("expected key:value, got %q", term)
		}
		switch strings.ToLower(key) {
		case "status":
			f.Status = model.Status(strings.ToLower(value))
		case "priority":
			f.Priority = model.Priority(strings.ToLower(value))
		case "category":
			id, err := parseID("category", value)
			if err != nil {
				return Command{}, err
			}
			f.CategoryID = &id
		case "tag":
			id, err := parseID("tag", value)
			if err != nil {
				return Command{}, err
			}
			f.TagIDs = append(f.TagIDs, id)
		case "sort":
			f.SortBy = model.SortField(strings.ToLower(value))
		case "order":
			f.SortOrder = model.SortOrder(strings.ToLower(value))
		case "from":
			d, err := parseDate(value)
			if err != nil {
				return Command{}, err
			}
			f.DueDateStart = &d
		case "to":
			d, err := parseDate(value)
			if err != nil {
				return Command{}, err
			}
			f.DueDateEnd = &d
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Command{}, invalid("limit must be a number")
			}
			f.Limit = n
		default:
			return Command{}, invalid("unknown filter %q", key)
		}
	}
	if err := f.Validate(); err != nil {
		return Command{}, invalid("%v", err)
	}
	return Command{Type: TypeFilter, Raw: raw, Filter: &FilterArgs{Filter: f}}, nil
}

func parseSearch(raw string, args []string) (Command, error) {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return Command{}, invalid("search requires a query")
	}
	return Command{Type: TypeSearch, Raw: raw, Search: &SearchArgs{Query: q}}, nil
}

func parseLabel(raw string, typ Type, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("usage: %s add <name> | %s rm <id>", typ, typ)
	}
	switch LabelAction(strings.ToLower(args[0])) {
	case LabelAdd:
		l := &LabelArgs{Action: LabelAdd, Name: args[1]}
		if len(args) > 2 {
			if typ != TypeCategory {
				return Command{}, invalid("tags take a single name")
			}
			l.Color = args[2]
		}
		return Command{Type: typ, Raw: raw, Label: l}, nil
	case LabelRemove:
		id, err := parseID(string(typ), args[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Type: typ, Raw: raw, Label: &LabelArgs{Action: LabelRemove, ID: id}}, nil
	default:
		return Command{}, invalid("unknown %s action %q", typ, args[0])
	}
}

const defaultGenerateCount = 5

func parseRecur(raw string, args []string) (Command, error) {
	if len(args) > 0 {
		switch RecurAction(strings.ToLower(args[0])) {
		case RecurList:
			if len(args) != 1 {
				return Command{}, invalid("usage: recur list")
			}
			return Command{Type: TypeRecur, Raw: raw, Recur: &RecurArgs{Action: RecurList}}, nil
		case RecurRemove:
			if len(args) != 2 {
				return Command{}, invalid("usage: recur rm <rule id>")
			}
			id, err := parseID("rule", args[1])
			if err != nil {
				return Command{}, err
			}
			return Command{Type: TypeRecur, Raw: raw, Recur: &RecurArgs{Action: RecurRemove, RuleID: id}}, nil
		case RecurGenerate:
			if len(args) < 2 || len(args) > 3 {
				return Command{}, invalid("usage: recur gen <rule id> [count]")
			}
			id, err := parseID("rule", args[1])
			if err != nil {
				return Command{}, err
			}
			count := defaultGenerateCount
			if len(args) == 3 {
				count, err = strconv.Atoi(args[2])
				if err != nil || count < 1 || count > 50 {
					return Command{}, invalid("count must be between 1 and 50")
				}
			}
			return Command{Type: TypeRecur, Raw: raw, Recur: &RecurArgs{Action: RecurGenerate, RuleID: id, Count: count}}, nil
		}
	}
	if len(args) < 2 || len(args) > 3 {
		return Command{}, invalid("usage: recur <task id> <daily|weekly|monthly|yearly> [interval]")
	}
	id, err := parseID("task", args[0])
	if err != nil {
		return Command{}, err
	}
	pattern := model.RecurrencePattern(strings.ToLower(args[1]))
	if !pattern.IsValid() {
		return Command{}, invalid("unknown pattern %q", args[1])
	}
	interval := 1
	if len(args) == 3 {
		interval, err = strconv.Atoi(args[2])
		if err != nil || interval < 1 {
			return Command{}, invalid("interval must be a positive number")
		}
	}
	return Command{Type: TypeRecur, Raw: raw, Recur: &RecurArgs{Action: RecurSet, TaskID: id, Pattern: pattern, Interval: interval}}, nil
}

// parseRemind accepts a relative "+90m" offset or an absolute date/time.
func parseRemind(raw string, args []string, now time.Time) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("usage: remind <task id> <+duration|time>")
	}
	id, err := parseID("task", args[0])
	if err != nil {
		return Command{}, err
	}
	var at time.Time
	if rel, ok := strings.CutPrefix(args[1], "+"); ok {
		d, err := time.ParseDuration(rel)
		if err != nil || d <= 0 {
			return Command{}, invalid("bad offset %q", args[1])
		}
		at = now.Add(d)
	} else if at, err = parseDate(args[1]); err != nil {
		return Command{}, err
	}
	return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{TaskID: id, At: at}}, nil
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("bad %s id %q", what, s)
	}
	return id, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("bad date %q, want YYYY-MM-DD", s)
}

// split breaks a line on whitespace, keeping double-quoted runs together so
// titles with spaces survive key="some value".
func split(s string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case !quoted && (r == ' ' || r == '\t'):
			if pending {
				out = append(out, cur.String())
				cur.Reset()
				pending = false
			}
		default:
			cur.WriteRune(r)
			pending = true
		}
	}
	if quoted {
		return nil, invalid("unterminated quote")
	}
	if pending {
		out = append(out, cur.String())
	}
	return out, nil
}
