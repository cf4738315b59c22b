// Package web serves the server-rendered settings management page.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/settingsadmin/internal/domain/settings"
	"github.com/Strob0t/settingsadmin/internal/query"
)

// Event names carried by the page's submit buttons.
const (
	EventToggleCreate = "toggle-create"
	EventCancelCreate = "cancel-create"
	EventCreate       = "create"
	EventEdit         = "edit"
	EventSave         = "save"
	EventCancelEdit   = "cancel-edit"
	EventDelete       = "delete"
	EventDismissError = "dismiss-error"
)

// Banner prefixes, one per failing action.
const (
	createFailedPrefix = "Invalid JSON or creation failed: "
	updateFailedPrefix = "Invalid JSON or update failed: "
	deleteFailedPrefix = "Failed to delete: "
	loadFailedPrefix   = "Failed to load setting: "
)

// State is everything the page remembers between posts.
// The page is viewing when neither Creating nor EditingID is set.
type State struct {
	Creating   bool
	Draft      string
	EditingID  string
	EditBuffer string
	Error      string
}

// Event is a parsed button value: a name plus, for edit and delete, a record id.
type Event struct {
	Name string
	ID   string
}

// ParseEvent splits "edit:<id>" and "delete:<id>" and validates plain names.
func ParseEvent(raw string) (Event, error) {
	name, id, hasID := strings.Cut(raw, ":")
	switch name {
	case EventEdit, EventDelete:
		if !hasID || id == "" {
			return Event{}, fmt.Errorf("event %q needs an id", name)
		}
		return Event{Name: name, ID: id}, nil
	case EventToggleCreate, EventCancelCreate, EventCreate, EventSave, EventCancelEdit, EventDismissError:
		if hasID {
			return Event{}, fmt.Errorf("event %q takes no id", name)
		}
		return Event{Name: name}, nil
	default:
		return Event{}, fmt.Errorf("unknown event %q", raw)
	}
}

// Queries is the data access the page needs. *query.Client satisfies it.
type Queries interface {
	Settings(ctx context.Context, page, pageSize int) query.Result[settings.Page]
	Setting(ctx context.Context, id string) query.Result[settings.Setting]
	CreateSetting(ctx context.Context, data json.RawMessage) (*settings.Setting, error)
	UpdateSetting(ctx context.Context, id string, data json.RawMessage) (*settings.Setting, error)
	DeleteSetting(ctx context.Context, id string) error
}

// Apply runs ev against st and returns the next state. Failures never
// escape: they become the banner text and leave the rest of st untouched.
func Apply(ctx context.Context, q Queries, st State, ev Event) State {
	switch ev.Name {
	case EventToggleCreate:
		st.Creating = !st.Creating
		st.Draft = ""

	case EventCancelCreate:
		st.Creating = false
		st.Draft = ""

	case EventCreate:
		data, err := parseJSON(st.Draft)
		if err == nil {
			_, err = q.CreateSetting(ctx, data)
		}
		if err != nil {
			st.Error = createFailedPrefix + err.Error()
			return st
		}
		st.Creating = false
		st.Draft = ""
		st.Error = ""

	case EventEdit:
		res := q.Setting(ctx, ev.ID)
		if res.Err != nil || res.Data == nil {
			st.Error = loadFailedPrefix + errText(res.Err)
			return st
		}
		st.EditingID = ev.ID
		st.EditBuffer = settings.Pretty(res.Data.Data)

	case EventSave:
		if st.EditingID == "" {
			return st
		}
		data, err := parseJSON(st.EditBuffer)
		if err == nil {
			_, err = q.UpdateSetting(ctx, st.EditingID, data)
		}
		if err != nil {
			st.Error = updateFailedPrefix + err.Error()
			return st
		}
		st.EditingID = ""
		st.EditBuffer = ""
		st.Error = ""

	case EventCancelEdit:
		st.EditingID = ""
		st.EditBuffer = ""

	case EventDelete:
		if err := q.DeleteSetting(ctx, ev.ID); err != nil {
			st.Error = deleteFailedPrefix + err.Error()
			return st
		}
		st.Error = ""

	case EventDismissError:
		st.Error = ""
	}
	return st
}

// parseJSON accepts any valid JSON text and returns it compacted.
func parseJSON(text string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(strings.TrimSpace(text))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func errText(err error) string {
	if err == nil {
		return "not found"
	}
	return err.Error()
}
