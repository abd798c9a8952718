package http

import (
	"net/http"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, ok := s.settingsCache.Get(settingsCacheKey)
	if !ok {
		var err error
		settings, err = s.store.GetSettings(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.settingsCache.Set(settingsCacheKey, settings)
	}
	writeJSON(w, http.StatusOK, toSettingsPayload(settings))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings := payload.toSettings()
	for _, rate := range []int64{payload.DesignRateWon, payload.DevelopmentRateWon, payload.OperationRateWon} {
		if rate < 0 {
			writeError(w, http.StatusUnprocessableEntity, "rates must not be negative")
			return
		}
	}
	if err := s.store.UpdateSettings(r.Context(), settings); err != nil {
		respondError(w, r, err)
		return
	}
	s.settingsCache.Delete(settingsCacheKey)
	writeJSON(w, http.StatusOK, toSettingsPayload(settings))
}
