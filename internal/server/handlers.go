package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/cache"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/docerrors"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/pipeline"
	summary "github.com/ginjaninja78/tradedoc-reconciler/internal/render"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/tablesource"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
	"github.com/ginjaninja78/tradedoc-reconciler/pkg/utils"
)

// maxSessionIDLength bounds client-supplied session IDs.
const maxSessionIDLength = 128

// =============================================================================
// RESPONSES
// =============================================================================

// ReconcileResponse is returned by POST /api/reconcile.
type ReconcileResponse struct {
	RunID       string                 `json:"run_id"`
	SessionID   string                 `json:"session_id"`
	Template    string                 `json:"template"`
	Table       *summary.View          `json:"table"`
	Primary     pipeline.DocumentStats `json:"primary"`
	Secondary   pipeline.DocumentStats `json:"secondary"`
	Issues      []Issue                `json:"issues"`
	Overwritten int                    `json:"overwritten"`
}

// Issue is a row-level problem of a run.
type Issue struct {
	Kind     string `json:"kind"`
	Document string `json:"document"`
	Row      int    `json:"row,omitempty"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
}

// TemplateInfo is one entry of GET /api/templates.
type TemplateInfo struct {
	Code                 string   `json:"code"`
	Name                 string   `json:"name"`
	FileMatchingPatterns []string `json:"file_matching_patterns,omitempty"`
}

func issuesOf(errs []*docerrors.Error) []Issue {
	issues := make([]Issue, 0, len(errs))
	for _, e := range errs {
		issue := Issue{
			Kind:     e.Kind.String(),
			Document: e.Document,
			Field:    e.Field,
			Message:  e.Message,
		}
		if e.Row >= 0 {
			issue.Row = e.Row + 1
		}
		issues = append(issues, issue)
	}
	return issues
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	infos := make([]TemplateInfo, 0, len(s.templates))
	for code, tmpl := range s.templates {
		infos = append(infos, TemplateInfo{
			Code:                 code,
			Name:                 tmpl.TemplateName,
			FileMatchingPatterns: tmpl.FileMatchingPatterns,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	render.JSON(w, r, infos)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)

	maxBytes := s.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			renderError(w, r, err)
			return
		}
		renderError(w, r, NewAPIError(http.StatusBadRequest, "INVALID_REQUEST",
			"expected a multipart form with primary and secondary files"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	primaryFile, primaryHeader, err := formFile(r, pipeline.RolePrimary)
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer primaryFile.Close()

	secondaryFile, secondaryHeader, err := formFile(r, pipeline.RoleSecondary)
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer secondaryFile.Close()

	code := r.FormValue("template")
	tmpl, ok := config.SelectTemplate(code, primaryHeader.Filename, s.cfg.DefaultTemplate, s.templates)
	if !ok {
		renderError(w, r, NewAPIError(http.StatusBadRequest, "UNKNOWN_TEMPLATE",
			fmt.Sprintf("template %q is not configured", code)))
		return
	}
	p, ok := s.pipelines[tmpl.TemplateCode]
	if !ok {
		renderError(w, r, ErrInternal)
		return
	}

	primaryDoc, err := readUpload(primaryFile, primaryHeader, pipeline.RolePrimary, tmpl.Primary)
	if err != nil {
		renderError(w, r, err)
		return
	}
	secondaryDoc, err := readUpload(secondaryFile, secondaryHeader, pipeline.RoleSecondary, tmpl.Secondary)
	if err != nil {
		renderError(w, r, err)
		return
	}

	result, err := p.Run(primaryDoc, secondaryDoc)
	if err != nil {
		renderError(w, r, err)
		return
	}

	opts := summary.OptionsFrom(tmpl)
	s.store.Put(session, &cache.Entry{Result: result, Options: opts})

	render.JSON(w, r, ReconcileResponse{
		RunID:       result.RunID,
		SessionID:   session,
		Template:    result.Template,
		Table:       summary.NewView(result.Table, opts),
		Primary:     result.Primary,
		Secondary:   result.Secondary,
		Issues:      issuesOf(result.AllIssues()),
		Overwritten: result.Overwritten,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	entry, ok := s.store.Get(sessionFrom(r), runID)
	if !ok {
		renderError(w, r, ErrNotFound)
		return
	}

	format, err := summary.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		renderError(w, r, NewAPIError(http.StatusBadRequest, "INVALID_FORMAT", err.Error()))
		return
	}

	var buf bytes.Buffer
	if err := summary.Write(format, &buf, entry.Result.Table, entry.Options); err != nil {
		s.logger.ErrorContext(r.Context(), "export failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		renderError(w, r, ErrInternal)
		return
	}

	fileName := utils.GenerateOutputFileName(s.cfg.UUIDFormat, map[string]string{
		"uuid":     runID,
		"template": entry.Result.Template,
		"ext":      format.Extension(),
	})
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// =============================================================================
// HELPERS
// =============================================================================

// session returns the caller's session ID, issuing a new one when absent.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if id := sessionFrom(r); id != "" {
		return id
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionHeader, id)
	return id
}

func sessionFrom(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" && len(id) <= maxSessionIDLength {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" && len(c.Value) <= maxSessionIDLength {
		return c.Value
	}
	return ""
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, docerrors.Invalid(field, "%s file is required", field)
	}
	return file, header, nil
}

func readUpload(file multipart.File, header *multipart.FileHeader, role string, settings config.DocumentSettings) (*types.Document, error) {
	format, err := tablesource.FormatFromFilename(header.Filename)
	if err != nil {
		return nil, err
	}
	return tablesource.Read(format, file, tablesource.OptionsFrom(role, header.Filename, settings))
}
