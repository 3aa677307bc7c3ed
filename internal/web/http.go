package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

const (
	flashTimeout = 3 * time.Second
	maxFormBody  = 1 << 20

	msgAdded         = "Item agregado exitosamente!"
	msgUpdated       = "Item actualizado exitosamente!"
	msgAddFailed     = "Error al agregar item: "
	msgUpdateFailed  = "Error al actualizar: "
	msgDeleteFailed  = "Error al eliminar el item."
	msgNetworkAdd    = "Error de red al intentar agregar el item."
	msgNetworkUpdate = "Error de red al actualizar el item."
	msgNetworkDelete = "Error de red al eliminar el item."
	msgGeneric       = "Ocurrió un error"
	msgItemNotFound  = "Item no encontrado"
)

type Server struct {
	Items *ItemsClient
	Log   *zap.Logger

	pages map[string]*template.Template
}

func NewServer(items *ItemsClient, log *zap.Logger) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Items: items, Log: log, pages: pages}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listPage)
	r.Get("/items/add", s.addPage)
	r.Post("/items/add", s.addSubmit)
	r.Get("/items/{id}", s.detailPage)
	r.Post("/items/{id}", s.saveSubmit)
	r.Post("/items/{id}/delete", s.deleteSubmit)

	return r
}

type page struct {
	Title       string
	Description string
	Flash       string
	Error       string
	FlashMillis int64
}

type listView struct {
	page
	Items []Item
}

type addView struct {
	page
	Draft Draft
}

// detailView is one of three states: LoadError set, Editing with a Draft, or viewing.
type detailView struct {
	page
	LoadError string
	Item      Item
	Editing   bool
	Draft     Draft
}

func newPage(title, description string) page {
	return page{
		Title:       title,
		Description: description,
		FlashMillis: flashTimeout.Milliseconds(),
	}
}

func (s *Server) listPage(w http.ResponseWriter, r *http.Request) {
	v := listView{page: newPage("Inventario", "Lista de items del inventario")}
	status := http.StatusOK

	items, err := s.Items.List(r.Context())
	if err != nil {
		s.Log.Warn("list items failed", zap.Error(err))
		v.Error = err.Error()
		status = statusFor(err)
	}
	v.Items = items

	s.render(w, status, "list", v)
}

func (s *Server) addPage(w http.ResponseWriter, r *http.Request) {
	v := addView{
		page:  newPage("Agregar Nuevo Item", "Formulario para agregar un nuevo item al inventario"),
		Draft: defaultDraft(),
	}
	if r.URL.Query().Get("added") == "1" {
		v.Flash = msgAdded
	}
	s.render(w, http.StatusOK, "add", v)
}

// addSubmit stays on the creation view either way: success redirects back to
// an empty form with a banner, failure re-renders the draft with the reason.
func (s *Server) addSubmit(w http.ResponseWriter, r *http.Request) {
	v := addView{page: newPage("Agregar Nuevo Item", "Formulario para agregar un nuevo item al inventario")}

	d, err := readDraft(w, r)
	if err != nil {
		v.Draft = defaultDraft()
		v.Error = msgAddFailed + msgGeneric
		s.render(w, http.StatusBadRequest, "add", v)
		return
	}

	created, err := s.Items.Create(r.Context(), d)
	if err != nil {
		s.Log.Warn("add item failed", zap.Error(err))
		v.Draft = d
		v.Error = failureMessage(msgAddFailed, msgNetworkAdd, err)
		s.render(w, statusFor(err), "add", v)
		return
	}

	s.Log.Info("item added", zap.String("id", created.ID), zap.String("name", created.Name))
	http.Redirect(w, r, "/items/add?added=1", http.StatusSeeOther)
}

func (s *Server) detailPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	it, err := s.Items.Get(r.Context(), id)
	if err != nil {
		s.renderLoadError(w, err, loadErrorMessage(err))
		return
	}

	v := detailView{page: detailPageMeta(it), Item: it}
	q := r.URL.Query()
	if q.Get("edit") == "1" {
		v.Editing = true
		v.Draft = draftFrom(it)
	}
	if q.Get("updated") == "1" {
		v.Flash = msgUpdated
	}

	s.render(w, http.StatusOK, "detail", v)
}

// saveSubmit sends the edited copy. On failure the form is shown again with
// what the user typed so nothing is lost.
func (s *Server) saveSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := readDraft(w, r)
	if err == nil {
		_, err = s.Items.Update(r.Context(), id, d)
	}
	if err == nil {
		http.Redirect(w, r, itemURL(id)+"?updated=1", http.StatusSeeOther)
		return
	}

	s.Log.Warn("update item failed", zap.Error(err), zap.String("id", id))

	it, gerr := s.Items.Get(r.Context(), id)
	if gerr != nil {
		it = Item{ID: id, Name: d.Name}
	}

	v := detailView{page: detailPageMeta(it), Item: it, Editing: true, Draft: d}
	v.Error = failureMessage(msgUpdateFailed, msgNetworkUpdate, err)
	s.render(w, statusFor(err), "detail", v)
}

func (s *Server) deleteSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.Items.Delete(r.Context(), id)
	if err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.Log.Warn("delete item failed", zap.Error(err), zap.String("id", id))

	msg := msgDeleteFailed
	var ne *NetworkError
	if errors.As(err, &ne) {
		msg = msgNetworkDelete
	}

	it, gerr := s.Items.Get(r.Context(), id)
	if gerr != nil {
		s.renderLoadError(w, err, msg)
		return
	}

	v := detailView{page: detailPageMeta(it), Item: it}
	v.Error = msg
	s.render(w, statusFor(err), "detail", v)
}

func (s *Server) renderLoadError(w http.ResponseWriter, err error, msg string) {
	v := detailView{page: newPage("Item", "Detalles del item"), LoadError: msg}
	s.render(w, statusFor(err), "detail", v)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := s.pages[name]
	if !ok {
		http.Error(w, "unknown page "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.Log.Error("render failed", zap.Error(err), zap.String("page", name))
		http.Error(w, "error del servidor", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func parsePages() (map[string]*template.Template, error) {
	base, err := template.New("").
		Funcs(template.FuncMap{"price": formatPrice}).
		ParseFS(templateFS, "templates/layout.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, 3)
	for _, name := range []string{"list", "detail", "add"} {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".gohtml"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func readDraft(w http.ResponseWriter, r *http.Request) (Draft, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		return Draft{}, err
	}
	return Draft{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Quantity:    r.PostFormValue("quantity"),
		Price:       r.PostFormValue("price"),
	}, nil
}

func defaultDraft() Draft {
	return Draft{Quantity: "1", Price: "0"}
}

func draftFrom(it Item) Draft {
	return Draft{
		Name:        it.Name,
		Description: it.Description,
		Quantity:    strconv.Itoa(it.Quantity),
		Price:       formatPrice(it.Price),
	}
}

func detailPageMeta(it Item) page {
	return newPage(it.Name+" - Detalles", "Detalles del item: "+it.Name)
}

func itemURL(id string) string {
	return "/items/" + url.PathEscape(id)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func failureMessage(prefix, network string, err error) string {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return network
	}

	msg := msgGeneric
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	return prefix + msg
}

func loadErrorMessage(err error) string {
	if errors.Is(err, ErrNotFound) {
		return msgItemNotFound
	}
	return err.Error()
}

func statusFor(err error) int {
	var se *StatusError
	var ne *NetworkError
	switch {
	case errors.As(err, &se) && se.Status >= 400:
		return se.Status
	case errors.As(err, &ne):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
