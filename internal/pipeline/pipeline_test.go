package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"cvforge/internal/ai"
	"cvforge/internal/config"
	"cvforge/internal/document"
	"cvforge/internal/errors"
	"cvforge/internal/synth"
	"cvforge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txtUpload(name, text string) types.UploadedDocument {
	return types.UploadedDocument{
		Data:      []byte(text),
		FileName:  name,
		MimeType:  "text/plain",
		SizeBytes: int64(len(text)),
	}
}

// recordingAnalyzer captures the input it was handed.
type recordingAnalyzer struct {
	mu  sync.Mutex
	got types.CompositeInput
}

func (r *recordingAnalyzer) Analyze(_ context.Context, in types.CompositeInput, models []types.ModelID) ai.Analysis {
	r.mu.Lock()
	r.got = in
	r.mu.Unlock()
	return ai.Analysis{
		Result:   synth.Synthesize(in, models),
		Provider: ai.ProviderMock,
		Warnings: []string{"analyzer warning"},
	}
}

func newPipeline(t *testing.T, analyzer Analyzer) *Pipeline {
	t.Helper()
	return New(document.NewValidator(0, nil), nil, analyzer, errors.NewDiscardLogger())
}

func TestPrepare(t *testing.T) {
	p := newPipeline(t, &recordingAnalyzer{})
	tor := txtUpload("tor.txt", "Post-issuance review of green bonds.")

	prepared, err := p.Prepare(context.Background(),
		txtUpload("jane.txt", "Jane Doe\n\nSkills\n- Go\n- SQL"),
		&tor,
		"  - Climate finance  ")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prepared.Input.CV, "# Jane Doe"), prepared.Input.CV)
	assert.NotContains(t, prepared.Input.CV, "Content extracted from", "provenance header is stripped")
	require.NotNil(t, prepared.CV.Header)
	assert.Equal(t, "jane.txt", prepared.CV.Header.FileName)

	require.True(t, prepared.Input.HasTOR())
	assert.True(t, strings.HasPrefix(prepared.Input.TORText(), "# Terms of Reference"))
	require.NotNil(t, prepared.TOR)
	assert.Equal(t, "tor.txt", prepared.TOR.Header.FileName)

	require.True(t, prepared.Input.HasCompetencies())
	assert.Equal(t, "- Climate finance", prepared.Input.CompetenciesText())
	assert.Empty(t, prepared.Warnings)
}

func TestPrepareRejectsUploads(t *testing.T) {
	p := newPipeline(t, &recordingAnalyzer{})
	big := types.UploadedDocument{Data: bytes.Repeat([]byte("a"), 10), FileName: "tor.txt", SizeBytes: 6 * 1024 * 1024}

	tests := []struct {
		name    string
		cv      types.UploadedDocument
		tor     *types.UploadedDocument
		code    string
		message string
	}{
		{
			name:    "unsupported cv",
			cv:      txtUpload("cv.png", "x"),
			code:    errors.ErrCodeUnsupportedFileType,
			message: "File type not supported. Please upload .pdf, .doc, .docx, .txt files.",
		},
		{
			name:    "oversize tor",
			cv:      txtUpload("cv.txt", "Jane"),
			tor:     &big,
			code:    errors.ErrCodeFileTooLarge,
			message: "File size exceeds the maximum limit of 5MB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Prepare(context.Background(), tt.cv, tt.tor, "")
			require.Error(t, err)
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestPrepareOpaqueDocument(t *testing.T) {
	p := newPipeline(t, &recordingAnalyzer{})
	doc := types.UploadedDocument{Data: []byte{0xD0, 0xCF, 0x11, 0xE0}, FileName: "legacy.doc", SizeBytes: 4}

	prepared, err := p.Prepare(context.Background(), doc, nil, "")
	require.NoError(t, err)

	assert.True(t, prepared.CV.Opaque)
	assert.Equal(t, "# CV Content", prepared.Input.CV)
	assert.NotEmpty(t, prepared.Warnings)
	assert.False(t, prepared.Input.HasTOR())
}

func TestPrepareText(t *testing.T) {
	p := newPipeline(t, &recordingAnalyzer{})
	blank := "   "

	prepared := p.PrepareText("%PDF-binary-content Jane Doe", &blank, "")
	assert.Equal(t, "# Jane Doe", prepared.Input.CV)
	assert.Nil(t, prepared.Input.TOR, "blank TOR is treated as absent")
	assert.Nil(t, prepared.Input.Competencies)
}

func TestRun(t *testing.T) {
	analyzer := &recordingAnalyzer{}
	p := newPipeline(t, analyzer)

	prepared := p.PrepareText("# Jane Doe\n\n## Skills\n- Go", nil, "")
	prepared.Warnings = []string{"prepare warning"}

	out := p.Run(context.Background(), prepared, []types.ModelID{types.ModelOpenAI, types.ModelQwen})

	assert.Equal(t, prepared.Input, analyzer.got)
	assert.Equal(t, []string{"prepare warning", "analyzer warning"}, out.Warnings)
	assert.Equal(t, ai.ProviderMock, out.Provider)
	assert.Equal(t, []types.ModelID{types.ModelOpenAI, types.ModelQwen}, out.Result.ModelsUsed)
	assert.Contains(t, out.Result.ImprovedText, "- Go")
}

func TestAnalyzeWithFallbackService(t *testing.T) {
	svc, err := ai.NewService(&config.OperationAIConfig{Provider: ai.ProviderOpenAI}, nil, nil)
	require.NoError(t, err)
	p := New(document.NewValidator(0, nil), nil, svc, nil)

	out, err := p.Analyze(context.Background(), txtUpload("cv.txt", "# Jane Doe\n\n## Skills\n- Go"), nil, "", nil)
	require.NoError(t, err)

	want := synth.Synthesize(types.CompositeInput{CV: out.Result.OriginalText}, nil)
	assert.True(t, out.Fallback)
	assert.Equal(t, want.ImprovedText, out.Result.ImprovedText)
	assert.Equal(t, want.Suggestions, out.Result.Suggestions)
}

func TestExtract(t *testing.T) {
	p := newPipeline(t, &recordingAnalyzer{})

	res, err := p.Extract(context.Background(), txtUpload("cv.txt", "Jane"))
	require.NoError(t, err)
	assert.Contains(t, res.Body, "# Content extracted from cv.txt")

	_, err = p.Extract(context.Background(), txtUpload("cv.exe", "Jane"))
	assert.Error(t, err)
}
