package server

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/email"
	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/geo"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// leadRow is a stored lead as the list detail endpoint returns it.
type leadRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	City        string    `json:"city"`
	SignalType  string    `json:"signal_type"`
	SourceLink  string    `json:"source_link"`
	Explanation string    `json:"explanation"`
	LinkedInURL string    `json:"linkedin_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRows(leads []model.PersistedLead) []leadRow {
	rows := make([]leadRow, len(leads))
	for i, p := range leads {
		rows[i] = leadRow{
			ID:          p.ID,
			Name:        p.Lead.Name,
			Company:     p.Lead.Company,
			City:        p.Lead.City,
			SignalType:  p.Lead.SignalType,
			SourceLink:  p.Lead.SourceLink,
			Explanation: p.Lead.Explanation,
			LinkedInURL: p.Lead.LinkedInURL,
			CreatedAt:   p.CreatedAt,
		}
	}
	return rows
}

// loadList fetches a list and its leads, writing the error response itself
// when it returns false.
func (s *Server) loadList(w http.ResponseWriter, r *http.Request) (*model.List, []model.PersistedLead, bool) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no datastore configured")
		return nil, nil, false
	}
	id := chi.URLParam(r, "id")

	list, err := s.store.GetList(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "list %s not found", id)
		return nil, nil, false
	}
	if err != nil {
		zap.L().Error("server: get list failed", zap.String("list_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch list")
		return nil, nil, false
	}

	leads, err := s.store.ListLeads(r.Context(), id)
	if err != nil {
		zap.L().Error("server: list leads failed", zap.String("list_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch list")
		return nil, nil, false
	}
	return list, leads, true
}

func (s *Server) handleListDetail(w http.ResponseWriter, r *http.Request) {
	list, leads, ok := s.loadList(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list, "leads": toRows(leads)})
}

func plainLeads(leads []model.PersistedLead) []model.Lead {
	out := make([]model.Lead, len(leads))
	for i, p := range leads {
		out[i] = p.Lead
	}
	return out
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	list, leads, ok := s.loadList(w, r)
	if !ok {
		return
	}
	data, err := export.CSV(plainLeads(leads))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export list")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(list.Name, ".csv")+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	list, leads, ok := s.loadList(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, plainLeads(leads)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export list")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(list.Name, ".xlsx")+`"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		writeError(w, http.StatusServiceUnavailable, "email delivery not configured")
		return
	}
	var req email.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "A valid recipient email is required.")
		return
	}

	if _, err := s.mailer.Send(r.Context(), req); err != nil {
		switch {
		case resilience.IsConfig(err):
			writeError(w, http.StatusBadRequest, "No Resend API key configured. Add one in Settings or set RESEND_API_KEY env var.")
		case errors.Is(err, email.ErrNoLeads):
			writeError(w, http.StatusBadRequest, "%s", email.ErrNoLeads.Error())
		default:
			zap.L().Error("server: email failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "%s", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGeography(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no datastore configured")
		return
	}
	summary, err := geo.Load(r.Context(), s.store)
	if err != nil {
		zap.L().Error("server: geography failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch geography data")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
