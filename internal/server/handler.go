package server

import (
	"bytes"
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"cvforge/internal/content"
	"cvforge/internal/errors"
	"cvforge/internal/observability"
	"cvforge/internal/render"
	"cvforge/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// failSpan marks span as failed with errType.
func failSpan(span oteltrace.Span, err error, errType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", errType))
}

// createSanitizeHandler strips binary markers and normalizes the text
func (s *Server) createSanitizeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("cvforge.api").Start(r.Context(), "api.sanitize")
		defer span.End()

		var req SanitizeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, r, "Invalid request body", err)
			return
		}

		kind := content.ParseKind(req.Kind)
		processed := content.Process(req.Text, kind)

		om.GetMetrics().RecordBusinessMetric(ctx, observability.MetricTextSanitized, true, om,
			attribute.String("kind", kind.String()),
			attribute.Bool("opaque", processed.Opaque))
		span.SetAttributes(
			attribute.String("sanitize.kind", kind.String()),
			attribute.Int("request.text_length", len(req.Text)),
			attribute.Bool("sanitize.opaque", processed.Opaque),
		)

		writeJSON(w, http.StatusOK, SanitizeResponse{RequestID: requestID(r), Processed: processed})
	}
}

// createExtractHandler extracts text from a multipart "file" upload
func (s *Server) createExtractHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("cvforge.api").Start(r.Context(), "api.extract")
		defer span.End()

		if err := r.ParseMultipartForm(s.AppConfig.Upload.MaxFileSize); err != nil {
			var maxBytesErr *http.MaxBytesError
			if stderrors.As(err, &maxBytesErr) {
				err = errors.NewValidationError(errors.ErrCodeFileTooLarge,
					fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
			} else {
				err = errors.NewValidationError(errors.ErrCodeInvalidRequest, "expected a multipart/form-data upload", err)
			}
			failSpan(span, err, "validation")
			writeAppError(w, r, "Invalid upload", err)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, fileHeader, err := r.FormFile("file")
		if err != nil {
			err = errors.NewValidationError(errors.ErrCodeInvalidRequest, "file field is required", err)
			failSpan(span, err, "validation")
			writeAppError(w, r, "Invalid upload", err)
			return
		}
		defer func() { _ = file.Close() }()

		pipeline := s.deps.Pipeline
		doc, err := pipeline.Validator().Read(filepath.Base(fileHeader.Filename), fileHeader.Header.Get("Content-Type"), file)
		if err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, r, "Upload rejected", err)
			return
		}

		result, err := pipeline.Extract(ctx, doc)
		if err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, r, "Upload rejected", err)
			return
		}

		om.GetMetrics().RecordBusinessMetric(ctx, observability.MetricDocumentExtracted, true, om,
			attribute.String("extension", filepath.Ext(doc.FileName)),
			attribute.Bool("opaque", result.Opaque))
		span.SetAttributes(
			attribute.String("upload.extension", filepath.Ext(doc.FileName)),
			attribute.Int64("upload.size", doc.SizeBytes),
			attribute.Bool("extract.opaque", result.Opaque),
		)

		writeJSON(w, http.StatusOK, ExtractResponse{RequestID: requestID(r), ExtractionResult: result})
	}
}

// createAnalyzeHandler runs the full analysis over inline text or base64 files
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("cvforge.api").Start(r.Context(), "api.analyze")
		defer span.End()

		var req AnalyzeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, r, "Invalid request body", err)
			return
		}
		models := types.ParseModels(req.Models)

		cvText, warnings, err := s.resolveDocument(ctx, req.CV, "cv")
		if err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, r, "Upload rejected", err)
			return
		}

		var torText *string
		if req.TOR != nil {
			text, torWarnings, err := s.resolveDocument(ctx, *req.TOR, "tor")
			if err != nil {
				failSpan(span, err, "validation")
				writeAppError(w, r, "Upload rejected", err)
				return
			}
			torText = &text
			warnings = append(warnings, torWarnings...)
		}

		pipeline := s.deps.Pipeline
		prepared := pipeline.PrepareText(cvText, torText, req.Competencies)
		prepared.Warnings = append(warnings, prepared.Warnings...)

		span.SetAttributes(
			attribute.Int("request.cv_length", len(prepared.Input.CV)),
			attribute.Bool("request.has_tor", prepared.Input.HasTOR()),
			attribute.Bool("request.has_competencies", prepared.Input.HasCompetencies()),
			attribute.Int("request.models", len(models)),
		)

		metrics := om.GetMetrics()
		var response AnalyzeResponse
		err = metrics.TrackAIOperationWithTokens(ctx, "analyze", func(ctx context.Context) *observability.AIOperationResult {
			out := pipeline.Run(ctx, prepared, models)
			response = AnalyzeResponse{
				RequestID:       requestID(r),
				SynthesisResult: out.Result,
				Warnings:        out.Warnings,
				Fallback:        out.Fallback,
				Usage:           out.Usage,
			}
			response.Provider = out.Provider
			return &observability.AIOperationResult{
				Provider:   out.Provider,
				Fallback:   out.Fallback,
				TokenUsage: (*observability.TokenUsage)(out.Usage),
			}
		}, om)
		if err != nil {
			failSpan(span, err, "ai_processing")
			metrics.RecordBusinessMetric(ctx, observability.MetricCVAnalyzed, false, om)
			writeAppError(w, r, "Failed to analyze CV", err)
			return
		}
		if response.Warnings == nil {
			response.Warnings = []string{}
		}

		metrics.RecordBusinessMetric(ctx, observability.MetricCVAnalyzed, true, om,
			attribute.String("provider", response.Provider),
			attribute.Bool("fallback", response.Fallback),
			attribute.Int("suggestions", len(response.Suggestions)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("analysis.provider", response.Provider),
			attribute.Bool("analysis.fallback", response.Fallback),
			attribute.Int("response.suggestions", len(response.Suggestions)),
		)

		writeJSON(w, http.StatusOK, response)
	}
}

// resolveDocument returns the text of payload, extracting it when it was
// sent as a base64 file.
func (s *Server) resolveDocument(ctx context.Context, payload DocumentPayload, field string) (string, []string, error) {
	if payload.Data == "" {
		return payload.Text, nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, field+".data must be base64 encoded", err)
	}

	pipeline := s.deps.Pipeline
	doc, err := pipeline.Validator().Read(filepath.Base(payload.FileName), "", bytes.NewReader(data))
	if err != nil {
		return "", nil, err
	}
	result, err := pipeline.Extract(ctx, doc)
	if err != nil {
		return "", nil, err
	}
	return result.Body, result.Warnings, nil
}

// createPreviewHandler maps text to display blocks
func (s *Server) createPreviewHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := om.Tracer("cvforge.api").Start(r.Context(), "api.preview")
		defer span.End()

		var req PreviewRequest
		if err := parseJSONRequest(r, &req); err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, r, "Invalid request body", err)
			return
		}

		blocks := render.ToBlocks(req.Text)
		span.SetAttributes(attribute.Int("preview.blocks", len(blocks)))

		writeJSON(w, http.StatusOK, PreviewResponse{RequestID: requestID(r), Blocks: blocks})
	}
}

// createExportHandler renders text to a PDF or DOCX download
func (s *Server) createExportHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("cvforge.api").Start(r.Context(), "api.export")
		defer span.End()

		var req ExportRequest
		if err := parseJSONRequest(r, &req); err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, r, "Invalid request body", err)
			return
		}

		format, err := render.ParseFormat(req.Format)
		if err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, r, "Invalid export format", err)
			return
		}
		templateName := req.Template
		if templateName == "" {
			templateName = s.AppConfig.Export.DefaultTemplate
		}

		metrics := om.GetMetrics()
		data, err := s.deps.Exporter.Export(ctx, req.Text, format, templateName)
		if err != nil {
			failSpan(span, err, "export")
			metrics.RecordBusinessMetric(ctx, observability.MetricDocumentExported, false, om,
				attribute.String("format", string(format)))
			writeAppError(w, r, "Export failed", exportFailureMessage(err, format))
			return
		}

		metrics.RecordBusinessMetric(ctx, observability.MetricDocumentExported, true, om,
			attribute.String("format", string(format)),
			attribute.String("template", render.LookupTemplate(templateName).Name))
		span.SetAttributes(
			attribute.String("export.format", string(format)),
			attribute.Int("export.bytes", len(data)),
		)

		name := render.FileName(safeBaseName(req.Name), format, templateName)
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			s.Logger.LogError(err, "Failed to write export response", "format", string(format))
		}
	}
}

// exportFailureMessage adds a hint to try the other format.
func exportFailureMessage(err error, format render.Format) error {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Type == errors.ErrorTypeExport {
		return errors.NewExportError(appErr.Code,
			fmt.Sprintf("%s Try exporting as %s instead.", strings.TrimSuffix(appErr.Message, "."), strings.ToUpper(string(format.Alternative()))),
			err)
	}
	return err
}

// safeBaseName keeps the download name to letters, digits, dashes and
// underscores.
func safeBaseName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
