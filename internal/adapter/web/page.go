package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Strob0t/settingsadmin/internal/domain/settings"
	"github.com/Strob0t/settingsadmin/internal/query"
)

//go:embed templates/*.html
var templateFS embed.FS

// listPage is the only page the list read ever asks for.
const listPage = 1

const draftPlaceholder = "{\n  \"key\": \"value\",\n  \"nested\": {\n    \"example\": true\n  }\n}"

// Page renders the settings management page and applies form posts.
type Page struct {
	q        Queries
	pageSize int
	tmpl     *template.Template
	log      *slog.Logger
}

// NewPage parses the embedded template. pageSize is the list read size.
func NewPage(q Queries, pageSize int, log *slog.Logger) (*Page, error) {
	if log == nil {
		log = slog.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}
	return &Page{q: q, pageSize: pageSize, tmpl: tmpl, log: log}, nil
}

type card struct {
	ID      string
	Pretty  string
	Editing bool
}

type view struct {
	State
	Placeholder string
	Loading     bool
	Cards       []card
}

// FormOpen reports whether a create or edit form is showing.
func (v view) FormOpen() bool {
	return v.Creating || v.EditingID != ""
}

// Show handles GET /. ?new=1 opens the create form and ?edit=<id> opens
// the editor for that record.
func (p *Page) Show(w http.ResponseWriter, r *http.Request) {
	var st State
	if open, _ := strconv.ParseBool(r.URL.Query().Get("new")); open {
		st = Apply(r.Context(), p.q, st, Event{Name: EventToggleCreate})
	}
	if id := r.URL.Query().Get("edit"); id != "" {
		st = Apply(r.Context(), p.q, st, Event{Name: EventEdit, ID: id})
	}
	p.render(w, r, st)
}

// Submit handles POST /: it rebuilds the state from the form, applies the
// pressed button's event and renders the result.
func (p *Page) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	st := stateFromForm(r)

	ev, err := ParseEvent(r.PostFormValue("event"))
	if err != nil {
		p.log.DebugContext(r.Context(), "ignoring form event", "error", err)
	} else {
		st = Apply(r.Context(), p.q, st, ev)
	}
	p.render(w, r, st)
}

func stateFromForm(r *http.Request) State {
	creating, _ := strconv.ParseBool(r.PostFormValue("creating"))
	return State{
		Creating:   creating,
		Draft:      r.PostFormValue("draft"),
		EditingID:  r.PostFormValue("editing_id"),
		EditBuffer: r.PostFormValue("edit_buffer"),
		Error:      r.PostFormValue("error"),
	}
}

func (p *Page) render(w http.ResponseWriter, r *http.Request, st State) {
	res := p.q.Settings(r.Context(), listPage, p.pageSize)
	if res.Err != nil {
		// The list shows its empty state; the banner is reserved for writes.
		p.log.WarnContext(r.Context(), "settings list read failed", "error", res.Err)
	}
	p.write(w, r, buildView(st, res))
}

func buildView(st State, res query.Result[settings.Page]) view {
	v := view{State: st, Placeholder: draftPlaceholder, Loading: res.IsLoading}
	if res.IsLoading {
		return v
	}
	if res.Err != nil || res.Data == nil {
		v.EditingID = ""
		v.EditBuffer = ""
		return v
	}
	editing := false
	for _, s := range res.Data.Items {
		c := card{ID: s.ID, Editing: s.ID == st.EditingID}
		if c.Editing {
			editing = true
		} else {
			c.Pretty = settings.Pretty(s.Data)
		}
		v.Cards = append(v.Cards, c)
	}
	if !editing {
		// The record went away while being edited; drop the orphaned editor.
		v.EditingID = ""
		v.EditBuffer = ""
	}
	return v
}

func (p *Page) write(w http.ResponseWriter, r *http.Request, v view) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "page.html", v); err != nil {
		p.log.ErrorContext(r.Context(), "render settings page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
