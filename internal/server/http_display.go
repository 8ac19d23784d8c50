package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo prints the startup banner to stdout.
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(w, format+"\n", args...) }

	p("Endpoints:")
	for _, e := range endpoints {
		p("  %-4s %-10s %s", e.method, e.path, e.summary)
	}

	if s.TLSConfig.Enabled() {
		p("TLS: enabled (cert %s)", s.TLSConfig.CertFile)
	} else {
		p("TLS: disabled")
	}

	if svc := s.deps.Service; svc != nil {
		p("AI provider: %s", svc.ProviderName())
	}
	if store := s.deps.Keys; store != nil {
		p("Models with keys: %v", store.Available())
	}

	if len(s.APIKeys) > 0 {
		p("API authentication: enabled, %d keys. Send X-API-Key or an Authorization Bearer token; /health and /stats are open.", len(s.APIKeys))
	} else {
		p("API authentication: disabled. WARNING: all endpoints are public.")
	}

	if s.MaxRequestSize > 0 {
		p("Request size limit: %d bytes (%.1f MB)", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		p("Request size limit: none")
	}

	switch rl := s.RateLimit; {
	case rl == nil || !rl.Enabled:
		p("Rate limiting: disabled")
	default:
		p("Rate limiting: %d requests/min, burst %d (by API key: %t, by IP: %t)",
			rl.RequestsPerMin, rl.BurstCapacity, rl.ByAPIKey, rl.ByIP)
	}
}

var endpoints = []struct {
	method, path, summary string
}{
	{"GET", "/health", "Health check"},
	{"GET", "/stats", "Server statistics"},
	{"GET", "/models", "Models with keys available"},
	{"POST", "/sanitize", "Strip binary markers from text"},
	{"POST", "/extract", "Extract text from a multipart file upload"},
	{"POST", "/analyze", "Analyze a CV against optional Terms of Reference"},
	{"POST", "/preview", "Map text to display blocks"},
	{"POST", "/export", "Render text as PDF or DOCX"},
}
