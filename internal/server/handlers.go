package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spigell/skill-matcher/internal/engine"
	"github.com/spigell/skill-matcher/internal/extraction"
	"github.com/spigell/skill-matcher/internal/failure"
)

const formFieldFile = "file"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOccupationMatchings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := engine.OccupationQuery{
		PersonID:      r.PathValue("personId"),
		OccupationIDs: splitList(q["occupationIds"]),
	}

	if raw := q.Get("thresholdScore"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.errorResponse(w, r, failure.Invalid("thresholdScore", "must be a number"))
			return
		}
		query.ThresholdScore = &v
	}

	if raw := q.Get("light"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.errorResponse(w, r, failure.Invalid("light", "must be a boolean"))
			return
		}
		query.Light = v
	}

	matchings, err := s.engine.MatchOccupationsForPerson(r.Context(), query)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	if s.cfg.LegacyJSON || q.Get("format") == formatLegacy {
		encoded, err := engine.LegacyJSON(matchings)
		if err != nil {
			s.errorResponse(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]string{"matchings": encoded})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"matchings": matchings})
}

func (s *Server) handleSkillMatchings(w http.ResponseWriter, r *http.Request) {
	skills, err := s.engine.MatchSkillsForPersonAndOccupation(r.Context(), r.PathValue("personId"), r.PathValue("occupationId"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"skills": skills})
}

func (s *Server) handleExtractSkills(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	file, closeFile, err := s.uploadedFile(w, r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	defer closeFile()

	conn, err := s.engine.ExtractSkillsFromDocument(r.Context(), file, limit, offset)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, conn)
}

func (s *Server) handleCountSkills(w http.ResponseWriter, r *http.Request) {
	file, closeFile, err := s.uploadedFile(w, r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	defer closeFile()

	count, err := s.engine.CountExtractableSkills(r.Context(), file)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]int{"count": count})
}

// uploadedFile reads the multipart "file" field. The body limit leaves room
// over MaxUploadSize so most oversized documents reach the extractor; bodies
// past the limit fail here with the same extraction error.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (engine.File, func(), error) {
	limit := s.cfg.MaxUploadSize + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	f, header, err := r.FormFile(formFieldFile)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > limit {
			return engine.File{}, nil, failure.Extraction("", fmt.Errorf("%w: limit is %d bytes", extraction.ErrTooLarge, s.cfg.MaxUploadSize))
		}
		return engine.File{}, nil, failure.Invalid(formFieldFile, "multipart field is required")
	}

	file := engine.File{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Reader:   f,
	}

	return file, func() { _ = f.Close() }, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, failure.Invalid(name, "must be an integer")
	}
	return v, nil
}

// splitList accepts both repeated parameters and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
