package portal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/alumni-portal-client/pkg/client"
	"github.com/Sternrassler/alumni-portal-client/pkg/mentorship"
	"github.com/Sternrassler/alumni-portal-client/pkg/query"
	"github.com/Sternrassler/alumni-portal-client/pkg/session"
)

// ViewState is what a page shows for a query.
type ViewState string

// View states.
const (
	StateLoading ViewState = "loading"
	StateError   ViewState = "error"
	StateEmpty   ViewState = "empty"
	StateReady   ViewState = "ready"
)

// StateOf maps a list query result to a view state. Cached data wins
// over a later error, so a failed background refetch keeps the page
// ready.
func StateOf[T any](r query.Result[[]T]) ViewState {
	switch {
	case r.HasData && len(r.Data) > 0:
		return StateReady
	case r.HasData:
		return StateEmpty
	case r.Status == query.StatusError:
		return StateError
	case r.Status == query.StatusLoading || r.IsFetching:
		return StateLoading
	default:
		return StateEmpty
	}
}

// ItemStateOf is StateOf for single-value queries.
func ItemStateOf[T any](r query.Result[T]) ViewState {
	switch {
	case r.HasData:
		return StateReady
	case r.Status == query.StatusError:
		return StateError
	case r.Status == query.StatusLoading || r.IsFetching:
		return StateLoading
	default:
		return StateEmpty
	}
}

// NoticeKind classifies a notice.
type NoticeKind string

// Notice kinds.
const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a user-visible message. Retry marks notices that offer a
// retry affordance.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Detail  string     `json:"detail,omitempty"`
	Retry   bool       `json:"retry,omitempty"`

	err error
}

// Err returns the error behind an error notice, if any.
func (n *Notice) Err() error {
	if n == nil {
		return nil
	}
	return n.err
}

// String renders the notice as one line.
func (n Notice) String() string {
	if n.Retry {
		return n.Message + " Retry."
	}
	return n.Message
}

func successNotice(msg string) *Notice {
	return &Notice{Kind: NoticeSuccess, Message: msg}
}

func infoNotice(msg string) *Notice {
	return &Notice{Kind: NoticeInfo, Message: msg}
}

// loadFailed is the notice for a query that ended in an error.
func loadFailed(thing string, err error) *Notice {
	n := &Notice{
		Kind:    NoticeError,
		Message: fmt.Sprintf("Failed to load %s.", thing),
		Retry:   true,
		err:     err,
	}
	if err != nil {
		n.Detail = client.UserMessage(err)
	}
	return n
}

// errorNotice turns a failed action into a notice. Auth and validation
// errors carry their own message; anything else gets fallback.
func errorNotice(err error, fallback string) *Notice {
	var authErr *session.AuthRequiredError
	if errors.As(err, &authErr) {
		return &Notice{Kind: NoticeError, Message: authErr.Message(), err: err}
	}
	var verr *mentorship.ValidationError
	if errors.As(err, &verr) {
		return &Notice{Kind: NoticeError, Message: "Please fix the highlighted fields", err: err}
	}
	return &Notice{Kind: NoticeError, Message: fallback, Detail: client.UserMessage(err), err: err}
}

// Expanded records which collapsible sections are open. Sections not
// listed use their default.
type Expanded map[string]bool

// ParseExpanded reads a comma-separated list of section ids. A leading
// "-" closes the section: "fees,-rooms".
func ParseExpanded(list string) Expanded {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	e := make(Expanded)
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		open := !strings.HasPrefix(id, "-")
		if id = strings.TrimPrefix(id, "-"); id != "" {
			e[id] = open
		}
	}
	return e
}

// Is reports whether id is open, falling back to def.
func (e Expanded) Is(id string, def bool) bool {
	if open, ok := e[id]; ok {
		return open
	}
	return def
}

// Toggle flips id relative to its default and returns the new state.
func (e Expanded) Toggle(id string, def bool) Expanded {
	if e == nil {
		e = make(Expanded)
	}
	e[id] = !e.Is(id, def)
	return e
}
