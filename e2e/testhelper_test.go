package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/strategyfactory/api/internal/config"
	"github.com/strategyfactory/api/internal/handler"
	"github.com/strategyfactory/api/internal/jobs"
	"github.com/strategyfactory/api/internal/middleware"
	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/internal/pipeline"
	"github.com/strategyfactory/api/internal/registry"
	"github.com/strategyfactory/api/internal/service"
)

const (
	testJWTSecret = "test-secret-for-e2e"
	testUsername  = "admin"
	testPassword  = "s3cret"
)

// testApp holds all components needed for testing.
type testApp struct {
	app        *fiber.App
	registry   *jobs.Registry
	outputBase string

	// gate, when non-nil, blocks the fake researcher until closed. Lets
	// tests hold a job in flight deterministically.
	gate chan struct{}
}

type fakeResearcher struct{ gate chan struct{} }

func (f *fakeResearcher) Research(input model.CompanyInput, progress pipeline.ProgressFunc) (*model.ResearchOutput, error) {
	if f.gate != nil {
		<-f.gate
	}
	return &model.ResearchOutput{
		CompanyName:  input.Name,
		ResearchMode: input.Mode,
		Sections:     map[string]string{"overview": "test findings"},
		QueryCount:   1,
	}, nil
}

type fakeSynthesizer struct {
	output *model.SynthesisOutput
}

func (f *fakeSynthesizer) Synthesize(input model.CompanyInput, research *model.ResearchOutput, deliverables []string, progress pipeline.ProgressFunc) (*model.SynthesisOutput, error) {
	f.output = &model.SynthesisOutput{
		CompanyName:  input.Name,
		Deliverables: make(map[string]string),
	}
	for _, id := range deliverables {
		f.output.Deliverables[id] = "# " + id
	}
	return f.output, nil
}

func (f *fakeSynthesizer) SaveDeliverables(dirName string) (map[string]string, error) {
	paths := make(map[string]string, len(f.output.Deliverables))
	for id := range f.output.Deliverables {
		paths[id] = filepath.Join(dirName, "markdown", id+".md")
	}
	return paths, nil
}

func (f *fakeSynthesizer) Errors() []model.SynthesisError { return nil }

type fakeGenerator struct{}

func (f *fakeGenerator) GenerateAll(dirName string, input model.CompanyInput, research *model.ResearchOutput, synthesis *model.SynthesisOutput, progress pipeline.ProgressFunc) (*model.GenerationResult, error) {
	var files []model.GeneratedFile
	for _, id := range registry.DocumentIDs() {
		entry, _ := registry.Get(id)
		files = append(files, model.GeneratedFile{Name: entry.Name, Path: filepath.Join(dirName, id)})
	}
	return &model.GenerationResult{Deliverables: files}, nil
}

// setupApp builds a Fiber app wired like main.go, with fake pipeline
// collaborators and no rate limiting so tests stay hermetic.
func setupApp(t *testing.T) *testApp {
	return newTestApp(t, nil)
}

// setupGatedApp builds the app with a researcher that blocks until the
// returned gate is closed. Lets tests hold a job in flight.
func setupGatedApp(t *testing.T) (*testApp, chan struct{}) {
	gate := make(chan struct{})
	return newTestApp(t, gate), gate
}

func newTestApp(t *testing.T, gate chan struct{}) *testApp {
	t.Helper()

	ta := &testApp{
		registry:   jobs.NewRegistry(),
		outputBase: t.TempDir(),
		gate:       gate,
	}

	collab := pipeline.Collaborators{
		NewResearcher:  func() pipeline.Researcher { return &fakeResearcher{gate: gate} },
		NewSynthesizer: func() pipeline.Synthesizer { return &fakeSynthesizer{} },
		NewGenerator:   func() pipeline.Generator { return &fakeGenerator{} },
	}
	runner := pipeline.NewRunner(ta.registry, collab, ta.outputBase)
	analysisService := service.NewAnalysisService(ta.registry, runner, nil, ta.outputBase)

	validate := validator.New()
	authCfg := config.AuthConfig{
		Username:   testUsername,
		Password:   testPassword,
		JWTSecret:  testJWTSecret,
		Expiration: 1,
	}
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	authHandler := handler.NewAuthHandler(authCfg, authMiddleware, validate)
	analysisHandler := handler.NewAnalysisHandler(analysisService, validate)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post("/api/auth/login", authHandler.Login)

	api := app.Group("/api", authMiddleware.Authenticate())
	analysis := api.Group("/analysis")
	analysis.Post("/start", analysisHandler.Start)
	analysis.Post("/continue/:slug", analysisHandler.Continue)
	analysis.Post("/cancel/:jobId", analysisHandler.Cancel)
	analysis.Get("/summary/:slug", analysisHandler.Summary)
	analysis.Get("/list", analysisHandler.List)
	analysis.Delete("/:slug", analysisHandler.Delete)

	ta.app = app
	return ta
}

// waitIdle blocks until no job is active, failing the test on timeout.
func (ta *testApp) waitIdle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ta.registry.Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("jobs still active after deadline")
}

// login obtains a bearer token through the real login endpoint.
func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, err := doRequest(app, http.MethodPost, "/api/auth/login",
		`{"username":"`+testUsername+`","password":"`+testPassword+`"}`, nil)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}
	body := parseJSON(t, resp)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, ta *testApp, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := login(t, ta.app)
	return doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
