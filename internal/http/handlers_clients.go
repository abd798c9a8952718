package http

import (
	"net/http"

	"dops/internal/core"
)

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var payload clientPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	client := core.Client{Name: payload.Name, Description: payload.Description, Contact: payload.Contact}
	if err := client.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := s.store.CreateClient(r.Context(), client)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.clientsCache.Delete(clientsCacheKey)
	writeJSON(w, http.StatusCreated, toClientResponse(created))
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	client, err := s.store.GetClient(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(client))
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, ok := s.clientsCache.Get(clientsCacheKey)
	if !ok {
		var err error
		clients, err = s.store.ListClients(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.clientsCache.Set(clientsCacheKey, clients)
	}
	resp := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toClientResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var payload clientPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	client := core.Client{ID: id, Name: payload.Name, Description: payload.Description, Contact: payload.Contact}
	if err := client.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.store.UpdateClient(r.Context(), client); err != nil {
		respondError(w, r, err)
		return
	}
	s.clientsCache.Delete(clientsCacheKey)
	writeJSON(w, http.StatusOK, toClientResponse(client))
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.DeleteClient(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	s.clientsCache.Delete(clientsCacheKey)
	w.WriteHeader(http.StatusNoContent)
}
