package generation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// DefaultModel is used when a request names no model.
const DefaultModel = sagemaker.ModelLlama2_7BJumpStart

// ErrEmptyInput is returned for requests without an API specification.
var ErrEmptyInput = errors.New("inputs must not be empty")

// TestCaseRequest asks for a test plan for an API specification.
type TestCaseRequest struct {
	Inputs     string      `json:"inputs"`
	Parameters *Parameters `json:"parameters"`
	Model      string      `json:"model"`
}

// NewTestCaseRequest returns a request pre-filled with defaults so that a
// partial JSON body only overrides the fields it names.
func NewTestCaseRequest() TestCaseRequest {
	p := TestCaseParameters()
	return TestCaseRequest{Parameters: &p, Model: DefaultModel}
}

// StepDefinitionInput pairs a specification with one test case.
type StepDefinitionInput struct {
	Spec string `json:"spec"`
	TC   string `json:"tc"`
}

// StepDefinitionRequest asks for Gherkin step definitions for a test case.
type StepDefinitionRequest struct {
	Inputs     StepDefinitionInput `json:"inputs"`
	Parameters *Parameters         `json:"parameters"`
	Model      string              `json:"model"`
}

// NewStepDefinitionRequest returns a request pre-filled with defaults.
func NewStepDefinitionRequest() StepDefinitionRequest {
	p := StepDefinitionParameters()
	return StepDefinitionRequest{Parameters: &p, Model: DefaultModel}
}

// Invoker posts a payload to a ready endpoint.
type Invoker interface {
	Invoke(ctx context.Context, payload any, opts ...sagemaker.InvokeOption) (json.RawMessage, error)
}

// ConnectFunc resolves a model name to an invoker for an active endpoint.
type ConnectFunc func(ctx context.Context, model string) (Invoker, error)

// Generator runs the generation tasks.
type Generator struct {
	connect   ConnectFunc
	templates *Templates
	log       *slog.Logger
}

// NewGenerator returns a generator that connects through ctrl without
// deploying inactive models.
func NewGenerator(ctrl *sagemaker.Controller, templates *Templates, log *slog.Logger) *Generator {
	connect := func(ctx context.Context, model string) (Invoker, error) {
		h, err := ctrl.Connect(ctx, model, false)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return newGenerator(connect, templates, log)
}

func newGenerator(connect ConnectFunc, templates *Templates, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{connect: connect, templates: templates, log: log}
}

// GenerateTestCases returns a test plan for req.Inputs.
func (g *Generator) GenerateTestCases(ctx context.Context, req TestCaseRequest) (string, error) {
	if req.Inputs == "" {
		return "", ErrEmptyInput
	}
	params := paramsOrDefault(req.Parameters, TestCaseParameters)
	query := Render(g.templates.TestCaseQuery, req.Inputs, "")
	return g.run(ctx, "testcases", req.Model, BuildInputs(query, g.templates.TestCaseSystem), params)
}

// GenerateStepDefinition returns Gherkin step definitions for one test case.
func (g *Generator) GenerateStepDefinition(ctx context.Context, req StepDefinitionRequest) (string, error) {
	if req.Inputs.Spec == "" || req.Inputs.TC == "" {
		return "", ErrEmptyInput
	}
	params := paramsOrDefault(req.Parameters, StepDefinitionParameters)
	query := Render(g.templates.StepQuery, req.Inputs.Spec, req.Inputs.TC)
	return g.run(ctx, "step-definition", req.Model, BuildInputs(query, g.templates.StepSystem), params)
}

func (g *Generator) run(ctx context.Context, task, model string, inputs [][]Message, params Parameters) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	inv, err := g.connect(ctx, model)
	if err != nil {
		return "", err
	}
	g.log.Info("running generation", "task", task, "model", model, "max_new_tokens", params.MaxNewTokens)

	raw, err := inv.Invoke(ctx, jumpStartRequest{Inputs: inputs, Parameters: params}, sagemaker.WithJumpStartEULA())
	if err != nil {
		return "", err
	}
	return ParseResponse(raw)
}

func paramsOrDefault(p *Parameters, def func() Parameters) Parameters {
	if p == nil {
		return def()
	}
	return *p
}
