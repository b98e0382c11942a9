package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/report"
)

// VersionListResponse is the body of GET /api/v1/versions.
type VersionListResponse struct {
	UpdatedAt      time.Time             `json:"updatedAt"`
	LatestHeadline string                `json:"latestHeadline"`
	Total          int                   `json:"total"`
	Versions       []core.VersionSummary `json:"versions"`
}

// loadDocument answers a conditional request itself and reports whether the
// handler should continue.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*core.HistoryDocument, bool) {
	doc, etag, err := s.cache.Get(r.Context())
	if err != nil {
		s.logger.Error("loading history", "error", err)
		respondDomainError(w, err)
		return nil, false
	}
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil, false
	}
	return doc, true
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, VersionListResponse{
		UpdatedAt:      doc.UpdatedAt,
		LatestHeadline: doc.LatestHeadline,
		Total:          doc.Len(),
		Versions:       doc.Summaries(),
	})
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	rec, err := resolveVersion(doc, chi.URLParam(r, "version"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetVersionMarkdown(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	rec, err := resolveVersion(doc, chi.URLParam(r, "version"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	md, err := report.RenderVersion(rec)
	if err != nil {
		s.logger.Error("rendering version", "version", rec.Version, "error", err)
		respondError(w, http.StatusInternalServerError, "rendering failed")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

// resolveVersion accepts a version number or "latest".
func resolveVersion(doc *core.HistoryDocument, param string) (core.VersionRecord, error) {
	if strings.EqualFold(param, "latest") {
		rec, ok := doc.Latest()
		if !ok {
			return core.VersionRecord{}, core.ErrNotFound("version", "latest")
		}
		return rec, nil
	}

	n, err := strconv.Atoi(strings.TrimPrefix(param, "v"))
	if err != nil || n < 1 {
		return core.VersionRecord{}, core.ErrValidation(core.CodeInvalidVersion,
			"version must be a positive number or \"latest\"")
	}
	rec, ok := doc.Version(n)
	if !ok {
		return core.VersionRecord{}, core.ErrNotFound("version", param)
	}
	return rec, nil
}
