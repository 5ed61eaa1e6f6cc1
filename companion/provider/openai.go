package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

var (
	// ErrRateLimited marks a 429 / rate-limit response from the provider.
	ErrRateLimited = errors.New("provider: rate limited")
	// ErrServer marks a 5xx response from the provider.
	ErrServer = errors.New("provider: server error")
	// ErrEmptyOutput is returned when the provider answered without any output text.
	ErrEmptyOutput = errors.New("provider: empty output")
)

// Request is one structured-output invocation of a text capability.
type Request struct {
	// Name identifies the response schema (e.g. "EmotionAnalysis").
	Name        string
	Description string
	Model       string

	Instructions string
	Input        string

	// Schema is a strict JSON schema the output must satisfy. Nil means free-form JSON.
	Schema map[string]any

	MaxOutputTokens int64
	Temperature     float64
}

// Config configures the OpenAI-backed capability.
type Config struct {
	APIKey  string
	BaseURL string
}

// OpenAI invokes the Responses API with a strict JSON schema. It never retries:
// each request is attempted once and any failure is returned to the caller.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI constructs the capability once at startup. A missing API key is a
// configuration error and is reported here rather than on every call.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("provider: missing OpenAI API key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAI{client: &client}, nil
}

// Invoke sends req and returns the raw output text.
func (o *OpenAI) Invoke(ctx context.Context, req Request) (string, error) {
	if o == nil || o.client == nil {
		return "", errors.New("provider: client is nil")
	}
	if req.Model == "" {
		return "", errors.New("provider: model is empty")
	}

	params := responses.ResponseNewParams{
		Model:        req.Model,
		Instructions: openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(req.MaxOutputTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        req.Name,
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String(req.Description),
					Type:        "json_schema",
				},
			},
		}
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}

func classifyError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case isRateLimitError(err):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case isServerError(err):
		return fmt.Errorf("%w: %v", ErrServer, err)
	default:
		return err
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

// GenerateSchema reflects T into a schema accepted by strict structured outputs.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureOpenAICompliance(schemaObj)
	return schemaObj
}

// AllowNull widens the type of the property reached by path (property names,
// descending through array items automatically) to also accept null.
func AllowNull(schema map[string]any, path ...string) {
	node := schema
	for _, name := range path {
		if items, ok := node[itemsKey].(map[string]any); ok {
			node = items
		}
		props, ok := node[propertiesKey].(map[string]any)
		if !ok {
			return
		}
		next, ok := props[name].(map[string]any)
		if !ok {
			return
		}
		node = next
	}
	switch t := node[typeKey].(type) {
	case string:
		node[typeKey] = []any{t, "null"}
	case []any:
		for _, v := range t {
			if v == "null" {
				return
			}
		}
		node[typeKey] = append(t, "null")
	}
	if enum, ok := node["enum"].([]any); ok {
		node["enum"] = append(enum, nil)
	}
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func ensureOpenAICompliance(schema map[string]any) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]any); ok {
			var requiredFields []string
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureOpenAICompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]any); ok {
		ensureOpenAICompliance(additionalProps)
	}
}
