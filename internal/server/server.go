// Package server maps the HTTP surface onto the pipeline. The handlers do
// request validation and field-for-field translation, nothing more.
package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/artaoheed/testgate/api"
	"github.com/artaoheed/testgate/internal/app"
	"github.com/artaoheed/testgate/internal/pipeline"
	"github.com/artaoheed/testgate/internal/provider"
	"github.com/artaoheed/testgate/internal/scoring"
)

type Server struct {
	app *app.App
	log *zap.SugaredLogger
}

func New(a *app.App, log *zap.SugaredLogger) *Server {
	return &Server{app: a, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/generate-tests", s.handleGenerateTests)
	mux.HandleFunc("/generate-tests-validated", s.handleGenerateTestsValidated)
	mux.HandleFunc("/evaluate-dataset", s.handleEvaluateDataset)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "testgate unit-test generation service is running.",
		"endpoints": []string{
			"/health",
			"/generate-tests",
			"/generate-tests-validated",
			"/evaluate-dataset",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateTests(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateTestsRequest
	if !s.decodeGenerateRequest(w, r, &req) {
		return
	}

	res, err := s.app.Pipeline.Run(r.Context(), pipeline.Request{
		SourceCode:  req.SourceCode,
		Provider:    req.Provider,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		RunPytest:   false,
	})
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	md := api.GenerateMetadata{
		GeneratorMetadata: toGeneratorMetadata(res.Metadata),
		SyntacticOK:       res.Governance.SyntaxOK,
		SyntaxError:       res.Governance.SyntaxError,
		Hallucination:     res.Governance.Hallucination,
		Status:            "ok",
	}
	if res.Governance.Hallucination {
		md.Status = "failed"
		md.Reason = "Meaningless assertion detected"
	}
	writeJSON(w, http.StatusOK, api.GenerateTestsResponse{
		Tests:    res.Tests,
		Prompt:   res.Prompt,
		Metadata: md,
	})
}

func (s *Server) handleGenerateTestsValidated(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateTestsValidatedRequest
	if !s.decodeGenerateRequest(w, r, &req.GenerateTestsRequest) {
		return
	}
	runPytest := true
	if req.RunPytest != nil {
		runPytest = *req.RunPytest
	}

	res, err := s.app.Pipeline.Run(r.Context(), pipeline.Request{
		SourceCode:  req.SourceCode,
		Provider:    req.Provider,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		RunPytest:   runPytest,
	})
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.GenerateTestsValidatedResponse{
		Tests:             res.Tests,
		Prompt:            res.Prompt,
		GeneratorMetadata: toGeneratorMetadata(res.Metadata),
		Governance: api.GovernanceReport{
			Safe:          res.Governance.Safe,
			SyntaxOK:      res.Governance.SyntaxOK,
			SyntaxError:   res.Governance.SyntaxError,
			Reasons:       res.Governance.Reasons,
			Warnings:      res.Governance.Warnings,
			PytestPassed:  res.Governance.PytestPassed,
			Hallucination: res.Governance.Hallucination,
		},
		PytestOutput: res.PytestOutput,
	})
}

func (s *Server) handleEvaluateDataset(w http.ResponseWriter, r *http.Request) {
	var req api.EvaluateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Detail: "invalid JSON body: " + err.Error()})
		return
	}

	cfg := s.app.Config
	functionsDir := orDefault(req.FunctionsDir, cfg.Dataset.FunctionsDir)
	expectedDir := orDefault(req.ExpectedTestsDir, cfg.Dataset.ExpectedTestsDir)
	generatedDir := orDefault(req.GeneratedTestsDir, cfg.Dataset.GeneratedTestsDir)

	if req.Regenerate {
		if _, err := s.app.Dataset.Run(r.Context(), functionsDir, generatedDir, false); err != nil {
			s.log.Errorw("dataset regeneration failed", "error", err)
			writeJSON(w, http.StatusInternalServerError,
				api.ErrorResponse{Detail: "generation failed: " + err.Error()})
			return
		}
	}

	opts := s.app.Scoring
	if req.MaxPairs > 0 {
		opts.MaxPairs = req.MaxPairs
	}
	pairs, summary, err := scoring.EvaluatePairs(r.Context(), expectedDir, generatedDir, opts, s.log)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Detail: err.Error()})
		return
	}

	resp := api.EvaluateDatasetResponse{
		Summary: api.EvaluationSummary{
			NumPairs:           summary.NumPairs,
			AvgBLEU:            summary.AvgBLEU,
			AvgEmbeddingCosine: summary.AvgEmbeddingCosine,
			HallucinationRate:  summary.HallucinationRate,
		},
		Pairs: make([]api.PairMetrics, 0, len(pairs)),
	}
	for _, p := range pairs {
		resp.Pairs = append(resp.Pairs, api.PairMetrics(p))
	}

	runPytest := true
	if req.RunPytest != nil {
		runPytest = *req.RunPytest
	}
	if runPytest {
		outcome, err := s.app.Runner.RunSuite(r.Context(), functionsDir, generatedDir)
		if err != nil {
			s.log.Warnw("suite pytest run could not be invoked", "error", err)
		} else {
			resp.PytestPassed = &outcome.Passed
			resp.PytestOutput = &outcome.Output
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeGenerateRequest parses and validates the shared generate fields.
// Returns false after writing an error response.
func (s *Server) decodeGenerateRequest(w http.ResponseWriter, r *http.Request, req *api.GenerateTestsRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Detail: "invalid JSON body: " + err.Error()})
		return false
	}
	if strings.TrimSpace(req.SourceCode) == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Detail: "source_code must not be empty."})
		return false
	}
	if req.Provider != "" {
		if _, err := provider.ParseKind(req.Provider); err != nil {
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Detail: err.Error()})
			return false
		}
	}
	return true
}

// writeGenerationError surfaces a generation-step failure. This is the only
// failure class reported as an error; validation findings ride back inside a
// 200 with safe=false. Asking for a provider that has no backend configured
// is a client error and gets a 400 instead.
func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	if provider.IsNotConfigured(err) {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Detail: err.Error()})
		return
	}
	s.log.Errorw("generation failed", "error", err)
	writeJSON(w, http.StatusInternalServerError,
		api.ErrorResponse{Detail: "generation failed: " + err.Error()})
}

func toGeneratorMetadata(m pipeline.Metadata) api.GeneratorMetadata {
	return api.GeneratorMetadata{
		RunID:           m.RunID,
		Provider:        m.Provider,
		Model:           m.Model,
		DurationSeconds: m.DurationSeconds,
		RawPreview:      m.RawPreview,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
