package server

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nonibytes/unitsearch/unitsearch"
	"github.com/nonibytes/unitsearch/unitsearch/ops"
)

const maxBodyBytes = 32 << 20

func intParam(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, ok := intParam(r, "limit")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer", nil)
		return
	}
	offset, ok := intParam(r, "offset")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "offset must be a non-negative integer", nil)
		return
	}
	withRecords, _ := strconv.ParseBool(q.Get("records"))

	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := e.Search(ctx, unitsearch.SearchRequest{
		Query:       q.Get("q"),
		Sort:        q.Get("sort"),
		Offset:      offset,
		Limit:       limit,
		Token:       q.Get("token"),
		WithRecords: withRecords,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	ex, err := e.Explain(q.Get("q"), q.Get("sort"), time.Time{})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("field") == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "field is required", nil)
		return
	}
	limit, ok := intParam(r, "limit")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer", nil)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	counts, err := e.Facets(ctx, q.Get("q"), q.Get("field"), limit)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": q.Get("field"), "values": counts})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("field") == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "field is required", nil)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	st, err := e.Stats(ctx, q.Get("q"), q.Get("field"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": ops.DiscoverFields(e.Registry())})
}

// handlePut accepts newline delimited JSON documents.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}

	batch := unitsearch.NewBatch()
	sc := bufio.NewScanner(io.LimitReader(r.Body, maxBodyBytes))
	sc.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)
	line := 0
	for sc.Scan() {
		line++
		doc := bytes.TrimSpace(sc.Bytes())
		if len(doc) == 0 {
			continue
		}
		if err := batch.PutJSON(bytes.Clone(doc)); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": errorBody{Kind: string(unitsearch.ErrSchema), Message: err.Error()},
				"line":  line,
			})
			return
		}
	}
	if err := sc.Err(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "read body: "+err.Error(), nil)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	n, err := e.Apply(ctx, batch)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"applied": n})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "id must be an integer", nil)
		return
	}

	batch := unitsearch.NewBatch()
	batch.Delete(id)
	ctx, cancel := s.requestContext(r)
	defer cancel()
	if _, err := e.Apply(ctx, batch); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
