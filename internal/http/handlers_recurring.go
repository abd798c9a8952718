package http

import (
	"net/http"

	"dops/internal/core"
)

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var payload templatePayload
	if err := decode(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tmpl := payload.toTemplate(0)
	if err := tmpl.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := s.store.CreateTemplate(r.Context(), tmpl)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateResponse(created))
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tmpl, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	templates, err := s.store.ListTemplates(r.Context(), activeOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, toTemplateResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var payload templatePayload
	if err := decode(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tmpl := payload.toTemplate(id)
	if err := tmpl.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.store.UpdateTemplate(r.Context(), tmpl); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

// handleDeactivateTemplate retires a template without losing the entries it
// already generated; DELETE only flips the active flag.
func (s *Server) handleDeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SetTemplateActive(r.Context(), id, false); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpsertBirthday(w http.ResponseWriter, r *http.Request) {
	var payload birthdayPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	setting := core.BirthdaySetting{
		User:   payload.User,
		Month:  payload.Month,
		Day:    payload.Day,
		Amount: core.Money{Won: payload.AmountWon},
	}
	if err := setting.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	saved, err := s.store.UpsertBirthday(r.Context(), setting)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, birthdayResponse{
		ID:        saved.ID,
		User:      saved.User,
		Month:     saved.Month,
		Day:       saved.Day,
		AmountWon: saved.Amount.Won,
	})
}

func (s *Server) handleListBirthdays(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListBirthdays(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := make([]birthdayResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toBirthdayResponse(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteBirthday(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.DeleteBirthday(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
