package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/artpar/searchtable/app"
	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/shell"
	"github.com/artpar/searchtable/core/table"
	"github.com/artpar/searchtable/pkg/jsonapi"
	"github.com/go-chi/chi/v5"
)

const (
	typeSession   = "sessions"
	typeRow       = "rows"
	typeSelection = "selections"
	typeDialog    = "dialogs"
)

// Pagination bounds accepted from clients.
const (
	maxPage     = 1_000_000
	maxPageSize = 10_000
)

func sessionPath(id string) string {
	return "/sessions/" + id
}

func sessionResource(v app.SessionView) jsonapi.Resource {
	b := jsonapi.NewResource(typeSession, v.ID).
		Attr("created", v.Created).
		Attr("locale", v.Locale).
		Attr("layout", v.Layout).
		Attr("table", v.Table).
		Attr("selection", v.Selection).
		Attr("summary", v.Summary).
		Attr("search", v.Search).
		Attr("more", v.More).
		Attr("dialog", v.Dialog).
		Attr("editRows", v.EditRows).
		Link(sessionPath(v.ID))
	if len(v.Diagnostics) > 0 {
		b.Meta("diagnostics", v.Diagnostics)
	}
	return b.Build()
}

// awaitLoads blocks on in-flight loads when the request asks ?wait=true.
// It writes an error and returns false when the request ends first.
func awaitLoads(w http.ResponseWriter, r *http.Request, sess *app.Session) bool {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		return true
	}
	err := sess.Table.WaitContext(r.Context())
	switch {
	case err == nil:
		return true
	case errors.Is(err, context.DeadlineExceeded):
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusGatewayTimeout, "load_timeout", "Load Timeout").
			Detailf("session %s is still loading", sess.ID).
			Build())
	default:
		jsonapi.WriteErrorFromGo(w, err)
	}
	return false
}

// respond writes the session state. With ?wait=true it first waits for
// in-flight loads, so the response carries the loaded page.
func respond(w http.ResponseWriter, r *http.Request, sess *app.Session, status int) {
	if !awaitLoads(w, r, sess) {
		return
	}
	jsonapi.WriteResource(w, status, sessionResource(sess.View()))
}

type createRequest struct {
	Locale string `json:"locale"`
}

func (c *Channel) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	sess := c.sessions.Create(r.Context(), req.Locale)
	if !awaitLoads(w, r, sess) {
		return
	}
	jsonapi.WriteCreated(w, sessionResource(sess.View()), sessionPath(sess.ID))
}

func (c *Channel) listSessions(w http.ResponseWriter, r *http.Request) {
	ids := c.sessions.IDs()
	resources := make([]jsonapi.Resource, 0, len(ids))
	for _, id := range ids {
		sess, err := c.sessions.Get(id)
		if err != nil {
			continue
		}
		resources = append(resources, jsonapi.NewResource(typeSession, id).
			Attr("created", sess.Created).
			Attr("locale", sess.Shell.Locale()).
			Link(sessionPath(id)).
			Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, nil)
}

func (c *Channel) getSession(w http.ResponseWriter, r *http.Request) {
	respond(w, r, sessionFrom(r), http.StatusOK)
}

func (c *Channel) closeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.sessions.Close(r.Context(), id); err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("session", id))
			return
		}
		jsonapi.WriteErrorFromGo(w, err)
		return
	}
	jsonapi.WriteNoContent(w)
}

func (c *Channel) refresh(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Shell.Refresh(r.Context())
	respond(w, r, sess, http.StatusOK)
}

func (c *Channel) reset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Shell.Reset(r.Context())
	respond(w, r, sess, http.StatusOK)
}

func (c *Channel) doLayout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Shell.DoLayout()
	respond(w, r, sess, http.StatusOK)
}

func (c *Channel) setFilters(w http.ResponseWriter, r *http.Request) {
	var filters map[string]any
	if err := decode(r, &filters); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	sess := sessionFrom(r)
	sess.Shell.SetFiltersValue(r.Context(), filters)
	respond(w, r, sess, http.StatusOK)
}

func (c *Channel) clearFilters(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Shell.ClearFilters(r.Context(), r.URL.Query()["key"]...)
	respond(w, r, sess, http.StatusOK)
}

func (c *Channel) setSorts(w http.ResponseWriter, r *http.Request) {
	var sorts []defaults.SortItem
	if err := decode(r, &sorts); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	var errs []jsonapi.Error
	for i, s := range sorts {
		if s.Key == "" {
			errs = append(errs, jsonapi.ErrValidationRequired(strconv.Itoa(i)+"/key"))
		}
		if !s.Order.IsValid() {
			errs = append(errs, jsonapi.ErrValidation(strconv.Itoa(i)+"/order", "order must be ascend or descend"))
		}
	}
	if len(errs) > 0 {
		jsonapi.WriteError(w, errs...)
		return
	}
	sess := sessionFrom(r)
	sess.Shell.SetSortsValue(r.Context(), sorts)
	respond(w, r, sess, http.StatusOK)
}

func (c *Channel) clearSorts(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Shell.ClearSorts(r.Context(), r.URL.Query()["key"]...)
	respond(w, r, sess, http.StatusOK)
}

func (c *Channel) setPagination(w http.ResponseWriter, r *http.Request) {
	var p table.Pagination
	if err := decode(r, &p); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	fromQuery := false
	if page, size := jsonapi.ParsePaginationParams(r.URL.Query(), 0); page > 0 || size > 0 {
		p = table.Pagination{Current: page, PageSize: size}
		fromQuery = true
	}
	invalid := func(field, param, detail string) jsonapi.Error {
		if fromQuery {
			return jsonapi.NewError(http.StatusUnprocessableEntity, "validation_error", "Validation Failed").
				Detail(detail).
				Parameter(param).
				Build()
		}
		return jsonapi.ErrValidation(field, detail)
	}
	var errs []jsonapi.Error
	if p.Current < 0 || p.Current > maxPage {
		errs = append(errs, invalid("current", "page", fmt.Sprintf("page must be between 0 and %d", maxPage)))
	}
	if p.PageSize < 0 || p.PageSize > maxPageSize {
		errs = append(errs, invalid("pageSize", "page[size]", fmt.Sprintf("page size must be between 0 and %d", maxPageSize)))
	}
	if len(errs) > 0 {
		jsonapi.WriteError(w, errs...)
		return
	}
	sess := sessionFrom(r)
	sess.Shell.SetPaginationValue(r.Context(), p)
	respond(w, r, sess, http.StatusOK)
}

type searchRequest struct {
	Primary map[string]any `json:"primary"`
	More    map[string]any `json:"more"`
	Reset   bool           `json:"reset"`
}

// setSearch writes panel values. With "reset" set the panels are submitted
// the way the search button does it.
func (c *Channel) setSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	sess := sessionFrom(r)
	if req.Primary != nil {
		sess.Primary.SetFieldsValue(req.Primary)
	}
	if req.More != nil {
		sess.More.SetFieldsValue(req.More)
	}
	if req.Reset {
		sess.Shell.Reset(r.Context())
	}
	respond(w, r, sess, http.StatusOK)
}

type localeRequest struct {
	Locale string `json:"locale"`
}

func (c *Channel) setLocale(w http.ResponseWriter, r *http.Request) {
	var req localeRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	if req.Locale == "" {
		jsonapi.WriteError(w, jsonapi.ErrValidationRequired("locale"))
		return
	}
	sess := sessionFrom(r)
	sess.Shell.SetLocale(r.Context(), req.Locale)
	respond(w, r, sess, http.StatusOK)
}

func selectionResource(id string, snap selection.Snapshot, summary string) jsonapi.Resource {
	return jsonapi.NewResource(typeSelection, id).
		Attr("keys", snap.Keys).
		Attr("rows", snap.Rows()).
		Attr("summary", summary).
		Link(sessionPath(id) + "/selection").
		Build()
}

func writeSelection(w http.ResponseWriter, sess *app.Session) {
	jsonapi.WriteResource(w, http.StatusOK,
		selectionResource(sess.ID, sess.Shell.GetSelection(), sess.Shell.SelectionSummary()))
}

type recordsRequest struct {
	Records []selection.Record `json:"records"`
}

func (c *Channel) getSelection(w http.ResponseWriter, r *http.Request) {
	writeSelection(w, sessionFrom(r))
}

func (c *Channel) setSelection(w http.ResponseWriter, r *http.Request) {
	var req recordsRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	sess := sessionFrom(r)
	sess.Shell.SetSelection(req.Records...)
	writeSelection(w, sess)
}

func (c *Channel) addSelection(w http.ResponseWriter, r *http.Request) {
	var req recordsRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	sess := sessionFrom(r)
	sess.Shell.AddSelection(req.Records...)
	writeSelection(w, sess)
}

// removeSelection removes ?key= entries, or clears the selection when no
// key is given.
func (c *Channel) removeSelection(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if keys := r.URL.Query()["key"]; len(keys) > 0 {
		sess.Shell.RemoveSelection(keys...)
	} else {
		sess.Shell.ClearSelection()
	}
	writeSelection(w, sess)
}

func (c *Channel) listRows(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if !awaitLoads(w, r, sess) {
		return
	}
	view := sess.Table.View()
	p := jsonapi.NewPagination(view.Total, view.Params.Pagination.Current, view.Params.Pagination.PageSize, r.URL.Path)
	doc := jsonapi.NewDocument().
		DataCollection(jsonapi.ResourcesFromRecords(typeRow, sess.RowKey, view.Rows)).
		Pagination(p).
		Meta("state", view.State).
		Meta("seq", view.Seq)
	if view.Error != "" {
		doc.Meta("error", view.Error)
	}
	jsonapi.WriteDocument(w, http.StatusOK, doc.Build())
}

func (c *Channel) setRows(w http.ResponseWriter, r *http.Request) {
	var req recordsRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	sess := sessionFrom(r)
	sess.Shell.SetTableData(req.Records)
	respond(w, r, sess, http.StatusOK)
}

type addRowRequest struct {
	Record   selection.Record     `json:"record"`
	Position table.InsertPosition `json:"position"`
}

func (c *Channel) addRow(w http.ResponseWriter, r *http.Request) {
	var req addRowRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	if len(req.Record) == 0 {
		jsonapi.WriteError(w, jsonapi.ErrValidationRequired("record"))
		return
	}
	switch req.Position {
	case "":
		req.Position = table.After
	case table.Before, table.After:
	default:
		jsonapi.WriteError(w, jsonapi.ErrValidation("position", "position must be before or after"))
		return
	}
	sess := sessionFrom(r)
	sess.Shell.AddRow(req.Record, req.Position)
	respond(w, r, sess, http.StatusCreated)
}

func (c *Channel) deleteRow(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !sessionFrom(r).Shell.DeleteRowByKey(key) {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("row", key))
		return
	}
	jsonapi.WriteNoContent(w)
}

func (c *Channel) getEditRows(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rows := sess.Shell.GetEditTableRowForm()
	jsonapi.WriteCollection(w, http.StatusOK, jsonapi.ResourcesFromRecords(typeRow, sess.RowKey, rows), nil)
}

func (c *Channel) addEditRows(w http.ResponseWriter, r *http.Request) {
	var req recordsRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	sess := sessionFrom(r)
	sess.Shell.SetEditTableRows(req.Records...)
	rows := sess.Shell.GetEditTableRowForm()
	jsonapi.WriteCollection(w, http.StatusOK, jsonapi.ResourcesFromRecords(typeRow, sess.RowKey, rows), nil)
}

func dialogResource(id string, d shell.DialogState) jsonapi.Resource {
	return jsonapi.NewResource(typeDialog, id).
		Attr("open", d.Open).
		Attr("mode", d.Mode).
		Attr("record", d.Record).
		Attr("values", d.Values).
		Link(sessionPath(id) + "/dialog").
		Build()
}

type dialogRequest struct {
	Mode   shell.DialogMode `json:"mode"`
	Record selection.Record `json:"record"`
}

func (c *Channel) getDialog(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	jsonapi.WriteResource(w, http.StatusOK, dialogResource(sess.ID, sess.Shell.Dialog()))
}

func (c *Channel) openDialog(w http.ResponseWriter, r *http.Request) {
	var req dialogRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	switch req.Mode {
	case "":
		req.Mode = shell.DialogCreate
	case shell.DialogCreate, shell.DialogEdit:
	default:
		jsonapi.WriteError(w, jsonapi.ErrValidation("mode", "mode must be create or edit"))
		return
	}
	sess := sessionFrom(r)
	state := sess.Shell.OpenDialog(req.Mode, req.Record)
	jsonapi.WriteResource(w, http.StatusOK, dialogResource(sess.ID, state))
}

func (c *Channel) setDialogValues(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decode(r, &values); err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return
	}
	sess := sessionFrom(r)
	if !sess.Shell.Dialog().Open {
		jsonapi.WriteConflict(w, "the dialog is not open")
		return
	}
	sess.Form.SetValues(values)
	jsonapi.WriteResource(w, http.StatusOK, dialogResource(sess.ID, sess.Shell.Dialog()))
}

// submitDialog checks required inputs and closes the dialog, returning the
// submitted values.
func (c *Channel) submitDialog(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	state := sess.Shell.Dialog()
	if !state.Open {
		jsonapi.WriteConflict(w, "the dialog is not open")
		return
	}
	if missing := sess.Shell.ValidateDialog(); len(missing) > 0 {
		errs := make([]jsonapi.Error, len(missing))
		for i, key := range missing {
			errs[i] = jsonapi.ErrValidationRequired(key)
		}
		jsonapi.WriteError(w, errs...)
		return
	}
	sess.Shell.CloseDialog()
	jsonapi.WriteResource(w, http.StatusOK, dialogResource(sess.ID, state))
}

func (c *Channel) closeDialog(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Shell.CloseDialog()
	jsonapi.WriteNoContent(w)
}
