package commands

import "fmt"

// Handlers maps each command to its implementation. R is whatever the caller
// wants back: a status line, or a deferred action for the event loop.
type Handlers[R any] struct {
	Add      func(AddArgs) (R, error)
	Done     func(TaskArgs) (R, error)
	Edit     func(EditArgs) (R, error)
	Remove   func(TaskArgs) (R, error)
	Tag      func(TagArgs) (R, error)
	Untag    func(TagArgs) (R, error)
	Filter   func(FilterArgs) (R, error)
	Search   func(SearchArgs) (R, error)
	Category func(LabelArgs) (R, error)
	Label    func(LabelArgs) (R, error)
	Recur    func(RecurArgs) (R, error)
	Remind   func(RemindArgs) (R, error)
	Suggest  func() (R, error)
	Reload   func() (R, error)
}

func Execute[R any](cmd Command, h Handlers[R]) (R, error) {
	switch cmd.Type {
	case TypeAdd:
		return call(cmd.Type, h.Add, cmd.Add)
	case TypeDone:
		return call(cmd.Type, h.Done, cmd.Task)
	case TypeEdit:
		return call(cmd.Type, h.Edit, cmd.Edit)
	case TypeRemove:
		return call(cmd.Type, h.Remove, cmd.Task)
	case TypeTag:
		return call(cmd.Type, h.Tag, cmd.Tag)
	case TypeUntag:
		return call(cmd.Type, h.Untag, cmd.Tag)
	case TypeFilter:
		return call(cmd.Type, h.Filter, cmd.Filter)
	case TypeSearch:
		return call(cmd.Type, h.Search, cmd.Search)
	case TypeCategory:
		return call(cmd.Type, h.Category, cmd.Label)
	case TypeLabel:
		return call(cmd.Type, h.Label, cmd.Label)
	case TypeRecur:
		return call(cmd.Type, h.Recur, cmd.Recur)
	case TypeRemind:
		return call(cmd.Type, h.Remind, cmd.Remind)
	case TypeSuggest:
		return call0(cmd.Type, h.Suggest)
	case TypeReload:
		return call0(cmd.Type, h.Reload)
	default:
		var zero R
		return zero, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func call[A, R any](typ Type, fn func(A) (R, error), args *A) (R, error) {
	var zero R
	if fn == nil {
		return zero, missing(typ)
	}
	if args == nil {
		return zero, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s has no arguments", typ)}
	}
	return fn(*args)
}

func call0[R any](typ Type, fn func() (R, error)) (R, error) {
	if fn == nil {
		var zero R
		return zero, missing(typ)
	}
	return fn()
}

func missing(typ Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", typ)}
}

// Help lists the palette syntax, one command per line.
var Help = []string{
	"/add <title> [!low|!medium|!high] [#tagID...]",
	"/done <id>",
	"/edit <id> field=value...",
	"/rm <id>",
	"/tag <id> <tagID>...",
	"/untag <id> <tagID>...",
	"/filter [status:<s> priority:<p> category:<id> tag:<id> sort:<field> order:<asc|desc> from:<date> to:<date> limit:<n>]",
	"/search <query>",
	"/category add <name> [color] | /category rm <id>",
	"/label add <name> | /label rm <id>",
	"/recur <id> <daily|weekly|monthly|yearly> [interval]",
	"/recur list | /recur rm <ruleID> | /recur gen <ruleID> [count]",
	"/remind <id> <+30m|YYYY-MM-DD[THH:MM]>",
	"/suggest",
	"/reload",
}
