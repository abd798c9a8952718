package http

import (
	"net/http"

	"dops/internal/core"
)

func (s *Server) handleTaskSummary(w http.ResponseWriter, r *http.Request) {
	key := core.SummaryKey(r.URL.Query().Get("by"))
	switch key {
	case core.ByClient, core.ByManager, core.ByCategory, core.ByMonth:
	default:
		writeError(w, http.StatusBadRequest, "by must be one of client, manager, category, month")
		return
	}
	filter, err := parseTaskFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	buckets, err := s.tasks.SummarizeTasks(r.Context(), filter, key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := make([]bucketResponse, 0, len(buckets))
	for _, b := range buckets {
		resp = append(resp, bucketResponse{
			Key:      b.Key,
			Count:    b.Count,
			Hours:    b.Hours.Float(),
			PriceWon: b.Price.Won,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLedgerSummary(w http.ResponseWriter, r *http.Request) {
	key := core.LedgerKey(r.URL.Query().Get("by"))
	switch key {
	case core.LedgerByKind, core.LedgerByMonth, core.LedgerByUser:
	default:
		writeError(w, http.StatusBadRequest, "by must be one of kind, month, user")
		return
	}
	filter, err := parseLedgerFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	buckets, err := s.ledger.SummarizeLedger(r.Context(), filter, key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := make([]ledgerBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		resp = append(resp, ledgerBucketResponse{
			Key:      b.Key,
			Count:    b.Count,
			TotalWon: b.Total.Won,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
