package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"coursecoach/internal/config"
	"coursecoach/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

type stubGenerator struct {
	reply string
	err   error
	delay time.Duration
}

func (s stubGenerator) Name() string { return "stub" }

func (s stubGenerator) Generate(ctx context.Context, _ string, _ domain.GenerateOptions) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func TestExtractJSON(t *testing.T) {
	p, err := ExtractJSON("Sure! Here it is:\n{\"answer\": \"x\", \"n\": 3}\nThanks.")
	require.NoError(t, err)
	assert.Equal(t, "x", p.String("answer"))

	_, err = ExtractJSON("no braces here")
	assert.Error(t, err)
	_, err = ExtractJSON("} backwards {")
	assert.Error(t, err)
	_, err = ExtractJSON("{not json}")
	assert.Error(t, err)
}

func TestPayloadCoercion(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{
		"s": "  hi ", "n": 87.9, "ns": "42", "bad": "x",
		"list": ["a", "", 3, null], "obj": {"k": true}, "nil": null
	}`), &p))

	assert.Equal(t, "hi", p.String("s"))
	assert.Equal(t, "", p.String("missing"))
	assert.Equal(t, "", p.String("nil"))
	assert.True(t, p.Has("nil"))

	n, ok := p.Int("n")
	assert.True(t, ok)
	assert.Equal(t, 87, n)
	n, ok = p.Int("ns")
	assert.True(t, ok)
	assert.Equal(t, 42, n)
	_, ok = p.Int("bad")
	assert.False(t, ok)

	f, ok := p.Float("n")
	assert.True(t, ok)
	assert.InDelta(t, 87.9, f, 1e-9)

	assert.Equal(t, []string{"a", "3"}, p.Strings("list"))
	assert.Nil(t, p.List("s"))
	assert.Equal(t, "true", p.Object("obj").String("k"))
	assert.Nil(t, p.Object("list"))
}

func TestAdapterUnavailable(t *testing.T) {
	a := NewAdapter(nil, time.Second, nil)
	assert.False(t, a.Available())
	_, err := a.GenerateJSON(context.Background(), "p", domain.GenerateOptions{})
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindUnavailable, ge.Kind)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAdapterClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  stubGenerator
		want Kind
	}{
		{"timeout", stubGenerator{delay: time.Second}, KindTimeout},
		{"backend", stubGenerator{err: &StatusError{Status: "500 Internal Server Error", Code: 500}}, KindBackend},
		{"generic", stubGenerator{err: errors.New("boom")}, KindBackend},
		{"malformed", stubGenerator{reply: "I cannot produce JSON"}, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(tt.gen, 20*time.Millisecond, nil)
			_, err := a.GenerateJSON(context.Background(), "p", domain.GenerateOptions{})
			var ge *Error
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.want, ge.Kind)
		})
	}
}

func TestAdapterSuccess(t *testing.T) {
	a := NewAdapter(stubGenerator{reply: "```json\n{\"answer\":\"ok\"}\n```"}, time.Second, nil)
	p, err := a.GenerateJSON(context.Background(), "p", domain.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", p.String("answer"))
}

func TestProfilesForLength(t *testing.T) {
	p := DefaultProfiles()
	assert.Equal(t, "fast", p.ForLength(0).Name)
	assert.Equal(t, "fast", p.ForLength(900).Name)
	assert.Equal(t, "standard", p.ForLength(901).Name)
	assert.Equal(t, "standard", p.ForLength(2200).Name)
	assert.Equal(t, "deep", p.ForLength(2201).Name)

	custom := ProfilesFromConfig(config.ProfilesConfig{
		Fast:     config.ProfileConfig{MaxChars: 10},
		Standard: config.ProfileConfig{MaxChars: 20},
	})
	assert.Equal(t, "standard", custom.ForLength(15).Name)
	assert.Equal(t, "deep", custom.ForLength(21).Name)
	assert.Equal(t, DefaultProfiles(), ProfilesFromConfig(config.ProfilesConfig{}))
}

func TestOpenAIClientGenerate(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":[{"content":[{"type":"output_text","text":"{\"a\":"},{"type":"output_text","text":"1}"}]}]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_OPENAI_KEY", "test-key")
	c, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKeyEnv: "TEST_OPENAI_KEY", Model: "m1", Timeout: time.Second})
	require.NoError(t, err)
	defer c.client.CloseIdleConnections()

	out, err := c.Generate(context.Background(), "hello", domain.GenerateOptions{Temperature: domain.Temperature(0.2), MaxOutputTokens: 50, ReasoningEffort: "low"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
	assert.Equal(t, "m1", got.Model)
	require.Len(t, got.Input, 1)
	assert.Equal(t, "hello", got.Input[0].Content)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	require.NotNil(t, got.Reasoning)
	assert.Equal(t, "low", got.Reasoning.Effort)
}

func TestOpenAIClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("TEST_OPENAI_KEY", "k")
	c, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_OPENAI_KEY"})
	require.NoError(t, err)
	defer c.client.CloseIdleConnections()

	a := NewAdapter(c, time.Second, nil)
	_, err = a.GenerateJSON(context.Background(), "p", domain.GenerateOptions{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindBackend, ge.Kind)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	_, err := NewOpenAIClient(OpenAIConfig{APIKeyEnv: "TEST_OPENAI_KEY"})
	assert.Error(t, err)
}

func TestOpenAIClientSendsZeroTemperature(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		bodies = append(bodies, m)
		_, _ = w.Write([]byte(`{"output_text":"{}"}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_OPENAI_KEY", "k")
	c, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_OPENAI_KEY", Model: "m1"})
	require.NoError(t, err)
	defer c.client.CloseIdleConnections()

	_, err = c.Generate(context.Background(), "p", domain.GenerateOptions{Temperature: domain.Temperature(0)})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p", domain.GenerateOptions{})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	temp, ok := bodies[0]["temperature"]
	require.True(t, ok, "explicit zero temperature must be sent")
	assert.Equal(t, 0.0, temp)
	assert.NotContains(t, bodies[1], "temperature")
}

func TestProfilesFromConfigKeepsZeroTemperature(t *testing.T) {
	zero := 0.0
	p := ProfilesFromConfig(config.ProfilesConfig{
		Fast: config.ProfileConfig{MaxChars: 10, Temperature: &zero},
	})
	require.NotNil(t, p.Fast.Options.Temperature)
	assert.Equal(t, 0.0, *p.Fast.Options.Temperature)
	assert.Nil(t, p.Standard.Options.Temperature)
}
