package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Tiliavir/reception/internal/model"
	"github.com/Tiliavir/reception/internal/report"
	"github.com/Tiliavir/reception/internal/timecalc"
)

type entryView struct {
	model.Entry
	Wait string
}

type receptionData struct {
	Flashes []Flash
	File    string
	Entries []entryView
}

type reportData struct {
	Flashes  []Flash
	Files    []string
	Selected string
	Month    string
	Summary  *model.Summary
	Entries  []model.Entry
}

func (s *Server) currentFile() string {
	return s.store.CurrentFileName(s.store.Now())
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) redirectReception(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/reception", http.StatusSeeOther)
}

// ReceptionPage handles GET / and GET /reception: this month's visitors,
// newest first, plus the check-in form.
func (s *Server) ReceptionPage(w http.ResponseWriter, r *http.Request) {
	file := s.currentFile()
	data := receptionData{File: file, Flashes: popFlashes(w, r)}

	entries, err := s.store.Load(file)
	if err != nil {
		s.log.Error("loading entries", zap.String("file", file), zap.Error(err))
		data.Flashes = append(data.Flashes, Flash{Category: "danger", Message: "Could not load visitors."})
	}

	timecalc.SortNewestFirst(entries)
	now := s.store.Now()
	for _, e := range entries {
		data.Entries = append(data.Entries, entryView{Entry: e, Wait: timecalc.WaitTime(e, now)})
	}
	s.render(w, "reception.html", data)
}

// CheckIn handles POST /reception.
func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	defer s.redirectReception(w, r)

	if err := r.ParseForm(); err != nil {
		addFlash(w, r, "danger", "Invalid form submission.")
		return
	}
	ne, err := NewEntryFromForm(r.PostForm)
	if err != nil {
		s.log.Debug("check-in rejected", zap.Error(err))
		addFlash(w, r, "warning", "Please fill in all fields.")
		return
	}

	file := s.currentFile()
	entry, err := s.store.Append(file, ne)
	if err != nil {
		s.log.Error("appending entry", zap.String("file", file), zap.Error(err))
		addFlash(w, r, "danger", "Error saving check-in: "+err.Error())
		return
	}
	s.log.Info("checked in", zap.String("file", file), zap.String("id", entry.ID))
	addFlash(w, r, "success", fmt.Sprintf("Check-in saved (#%s).", entry.ID))
}

// ToggleCalled handles POST /call/{id}/{state}. state is the called value
// the page was showing.
func (s *Server) ToggleCalled(w http.ResponseWriter, r *http.Request) {
	defer s.redirectReception(w, r)

	vars := mux.Vars(r)
	if !model.ValidCalledState(vars["state"]) {
		addFlash(w, r, "danger", "Invalid called value.")
		return
	}
	file := s.currentFile()
	found, err := s.store.ToggleCalled(vars["id"], vars["state"], file)
	switch {
	case err != nil:
		s.log.Error("toggling called", zap.String("file", file), zap.String("id", vars["id"]), zap.Error(err))
		addFlash(w, r, "danger", "Error updating called status.")
	case !found:
		addFlash(w, r, "warning", fmt.Sprintf("Visitor #%s not found.", vars["id"]))
	default:
		addFlash(w, r, "success", "Called status updated.")
	}
}

// Update handles POST /update/{id}: the visitor is marked served and the
// called flag is flipped from the form's called_state.
func (s *Server) Update(w http.ResponseWriter, r *http.Request) {
	defer s.redirectReception(w, r)

	id := mux.Vars(r)["id"]
	state := r.PostFormValue("called_state")
	if !model.ValidCalledState(state) {
		addFlash(w, r, "danger", "Invalid called value.")
		return
	}

	file := s.currentFile()
	found, err := s.store.MarkDone(id, file)
	if err == nil && found {
		found, err = s.store.ToggleCalled(id, state, file)
	}
	switch {
	case err != nil:
		s.log.Error("updating entry", zap.String("file", file), zap.String("id", id), zap.Error(err))
		addFlash(w, r, "danger", "Error updating status.")
	case !found:
		addFlash(w, r, "warning", fmt.Sprintf("Visitor #%s not found.", id))
	default:
		addFlash(w, r, "success", "Status updated.")
	}
}

// selectReportFile resolves the ?file= parameter (default: this month) and
// checks it against the files in the data directory.
func (s *Server) selectReportFile(r *http.Request) (selected string, files []string, ok bool, err error) {
	files, err = s.store.ListFiles()
	if err != nil {
		return "", nil, false, err
	}
	selected = r.URL.Query().Get("file")
	if selected == "" {
		selected = s.currentFile()
	}
	return selected, files, slices.Contains(files, selected), nil
}

// ReportPage handles GET /report.
func (s *Server) ReportPage(w http.ResponseWriter, r *http.Request) {
	data := reportData{Flashes: popFlashes(w, r), Month: timecalc.UnknownMonth}

	selected, files, ok, err := s.selectReportFile(r)
	if err != nil {
		s.log.Error("listing files", zap.Error(err))
		data.Flashes = append(data.Flashes, Flash{Category: "danger", Message: "Could not list report files."})
		s.render(w, "report.html", data)
		return
	}
	data.Files = files
	if !ok {
		data.Flashes = append(data.Flashes, Flash{Category: "danger", Message: "File not found or invalid."})
		s.render(w, "report.html", data)
		return
	}

	rep, err := report.Build(s.store, selected)
	if err != nil {
		s.log.Error("building report", zap.String("file", selected), zap.Error(err))
		data.Flashes = append(data.Flashes, Flash{Category: "danger", Message: "Could not load report."})
		s.render(w, "report.html", data)
		return
	}
	data.Selected = selected
	data.Month = rep.Month
	data.Summary = &rep.Summary
	data.Entries = rep.Entries
	s.render(w, "report.html", data)
}

func (s *Server) exportReport(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(*bytes.Buffer, report.Report) error) {
	selected, _, ok, err := s.selectReportFile(r)
	if err != nil {
		http.Error(w, "Could not list report files", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "File not found or invalid", http.StatusNotFound)
		return
	}
	rep, err := report.Build(s.store, selected)
	if err != nil {
		s.log.Error("building report", zap.String("file", selected), zap.Error(err))
		http.Error(w, "Could not load report", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, rep); err != nil {
		s.log.Error("rendering report", zap.String("format", ext), zap.Error(err))
		http.Error(w, "Could not render report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename(ext)))
	_, _ = buf.WriteTo(w)
}

// ReportCSV handles GET /report/csv.
func (s *Server) ReportCSV(w http.ResponseWriter, r *http.Request) {
	s.exportReport(w, r, "csv", "text/csv; charset=utf-8", func(b *bytes.Buffer, rep report.Report) error {
		return report.WriteCSV(b, rep)
	})
}

// ReportPDF handles GET /report/pdf.
func (s *Server) ReportPDF(w http.ResponseWriter, r *http.Request) {
	s.exportReport(w, r, "pdf", "application/pdf", func(b *bytes.Buffer, rep report.Report) error {
		return report.WritePDF(b, rep)
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{
		"status":       "ok",
		"data_dir":     s.store.Dir(),
		"current_file": s.currentFile(),
		"time":         s.store.Now().Format(time.RFC3339),
	}
	if _, err := s.store.ListFiles(); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Favicon handles GET /favicon.ico.
func (s *Server) Favicon(w http.ResponseWriter, r *http.Request) {
	data, err := staticFS.ReadFile("static/favicon.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(data)
}
