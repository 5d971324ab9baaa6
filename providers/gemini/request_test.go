package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func buildBody(t *testing.T, b *RequestBuilder) gjson.Result {
	t.Helper()
	req, err := b.Build()
	require.NoError(t, err)

	body, err := req.Body()
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(body))
	return gjson.ParseBytes(body)
}

func weatherTool(t *testing.T) ToolDefinition {
	t.Helper()
	def, err := NewTool("get_weather").
		Description("Current weather for a city").
		Parameter("city", StringSchema("City name"), true).
		Callback(func(context.Context, ToolCall) (ToolResult, error) {
			return TextResult("sunny, 24C"), nil
		}).
		Build()
	require.NoError(t, err)
	return def
}

func TestRequest_AddMessageRoundTrip(t *testing.T) {
	body := buildBody(t, NewRequestBuilder().AddMessage(RoleUser, "Hello"))

	contents := body.Get("contents").Array()
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Get("role").String())
	assert.Equal(t, "Hello", contents[0].Get("parts.0.text").String())
	assert.Len(t, contents[0].Get("parts").Array(), 1)
}

func TestRequest_MinimalBody(t *testing.T) {
	body := buildBody(t, NewRequestBuilder())

	assert.True(t, body.Get("contents").IsArray())
	for _, key := range []string{"systemInstruction", "safetySettings", "generationConfig", "tools", "toolConfig"} {
		assert.False(t, body.Get(key).Exists(), key)
	}
}

func TestRequest_SystemInstructionIsSeparate(t *testing.T) {
	body := buildBody(t, NewRequestBuilder().
		SystemInstruction("Be terse.").
		AddMessage(RoleUser, "Hi"))

	assert.Equal(t, "Be terse.", body.Get("systemInstruction.parts.0.text").String())
	assert.Len(t, body.Get("systemInstruction.parts").Array(), 1)
	assert.Len(t, body.Get("contents").Array(), 1)

	blank := buildBody(t, NewRequestBuilder().SystemInstruction("   "))
	assert.False(t, blank.Get("systemInstruction").Exists())
}

func TestRequest_GenerationConfig(t *testing.T) {
	schema := ObjectSchema().Property("answer", StringSchema(""), true)
	body := buildBody(t, NewRequestBuilder().
		Temperature(0.2).
		TopK(40).
		TopP(0.9).
		MaxOutputTokens(256).
		StopSequences("END").
		AddStopSequence("STOP").
		ResponseMimeType("application/json").
		ResponseSchema(schema))

	cfg := body.Get("generationConfig")
	assert.InDelta(t, 0.2, cfg.Get("temperature").Float(), 1e-9)
	assert.Equal(t, int64(40), cfg.Get("topK").Int())
	assert.InDelta(t, 0.9, cfg.Get("topP").Float(), 1e-9)
	assert.Equal(t, int64(256), cfg.Get("maxOutputTokens").Int())
	assert.Equal(t, `["END","STOP"]`, cfg.Get("stopSequences").Raw)
	assert.Equal(t, "application/json", cfg.Get("responseMimeType").String())
	assert.Equal(t, "object", cfg.Get("responseSchema.type").String())
	assert.False(t, cfg.Get("thinkingConfig").Exists())
}

func TestRequest_GenerationConfigOnlyWhenSet(t *testing.T) {
	tests := []struct {
		name    string
		builder *RequestBuilder
		want    bool
	}{
		{"nothing", NewRequestBuilder(), false},
		{"blank mime", NewRequestBuilder().ResponseMimeType("  "), false},
		{"empty stop list", NewRequestBuilder().StopSequences(), false},
		{"temperature zero", NewRequestBuilder().Temperature(0), true},
		{"mime", NewRequestBuilder().ResponseMimeType("text/plain"), true},
		{"stop", NewRequestBuilder().AddStopSequence("x"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := buildBody(t, tt.builder)
			assert.Equal(t, tt.want, body.Get("generationConfig").Exists())
		})
	}
}

func TestRequest_ThinkingBudget(t *testing.T) {
	unset := buildBody(t, NewRequestBuilder().Temperature(0.5))
	assert.True(t, unset.Get("generationConfig").Exists())
	assert.False(t, unset.Get("generationConfig.thinkingConfig").Exists())
	assert.NotContains(t, unset.Raw, "thinking")

	set := buildBody(t, NewRequestBuilder().Thinking(1000))
	assert.Equal(t, int64(1000), set.Get("generationConfig.thinkingConfig.thinkingBudget").Int())

	disabled := buildBody(t, NewRequestBuilder().Temperature(1).Thinking(0))
	budget := disabled.Get("generationConfig.thinkingConfig.thinkingBudget")
	require.True(t, budget.Exists())
	assert.Equal(t, int64(0), budget.Int())
}

func TestRequest_ToolsAndCallingMode(t *testing.T) {
	tool := weatherTool(t)

	tests := []struct {
		name    string
		builder *RequestBuilder
		mode    string
	}{
		{"parallel", NewRequestBuilder().AddTool(tool).ParallelToolCalls(true), "ANY"},
		{"not parallel", NewRequestBuilder().AddTool(tool).ParallelToolCalls(false), "AUTO"},
		{"unset", NewRequestBuilder().Tools(tool), "AUTO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := buildBody(t, tt.builder)
			assert.Equal(t, tt.mode, body.Get("toolConfig.functionCallingConfig.mode").String())

			tools := body.Get("tools").Array()
			require.Len(t, tools, 1)
			decls := tools[0].Get("functionDeclarations").Array()
			require.Len(t, decls, 1)
			assert.Equal(t, "get_weather", decls[0].Get("name").String())
			assert.Equal(t, "object", decls[0].Get("parameters.type").String())
		})
	}

	noTools := buildBody(t, NewRequestBuilder().ParallelToolCalls(true))
	assert.False(t, noTools.Get("toolConfig").Exists())
}

func TestRequest_SafetySettings(t *testing.T) {
	body := buildBody(t, NewRequestBuilder().
		AddSafetySetting(HarmCategoryHarassment, BlockOnlyHigh).
		SafetySettings(SafetySetting{Category: HarmCategoryHateSpeech, Threshold: BlockNone}))

	assert.JSONEq(t, `[
		{"category":"HARM_CATEGORY_HARASSMENT","threshold":"BLOCK_ONLY_HIGH"},
		{"category":"HARM_CATEGORY_HATE_SPEECH","threshold":"BLOCK_NONE"}
	]`, body.Get("safetySettings").Raw)
}

func TestRequest_Endpoint(t *testing.T) {
	req, err := NewRequestBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, req.Model())
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash-lite:generateContent", req.RelativePath())
	assert.Equal(t, http.MethodPost, req.Method())

	req, err = NewRequestBuilder().Model("models/gemini-2.5-flash").Build()
	require.NoError(t, err)
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", req.RelativePath())
}

func TestRequest_BuildIsCopyOnBuild(t *testing.T) {
	b := NewRequestBuilder().
		AddMessage(RoleUser, "first").
		AddStopSequence("a").
		AddSafetySetting(HarmCategoryHarassment, BlockNone)

	req, err := b.Build()
	require.NoError(t, err)

	b.AddMessage(RoleUser, "second").AddStopSequence("b").AddSafetySetting(HarmCategoryHateSpeech, BlockNone)

	assert.Len(t, req.Messages(), 1)
	assert.Equal(t, []string{"a"}, req.StopSequences())
	assert.Len(t, req.SafetySettings(), 1)

	msgs := req.Messages()
	msgs[0].Parts[0].Text = "mutated"
	assert.Equal(t, "first", req.Messages()[0].Parts[0].Text)
}

func TestRequest_BuildCopiesResponseSchema(t *testing.T) {
	schema := ObjectSchema().Property("city", StringSchema("City"), true)
	b := NewRequestBuilder().ResponseMimeType("application/json").ResponseSchema(schema)

	req, err := b.Build()
	require.NoError(t, err)
	before, err := req.Body()
	require.NoError(t, err)

	schema.Property("country", StringSchema(""), true)
	schema.Items(StringSchema(""))
	require.ErrorIs(t, schema.Err(), ErrConfiguration)

	got := req.ResponseSchema()
	got.Property("zip", StringSchema(""), false).EnumValues("x")
	require.Error(t, got.Err())

	after, err := req.Body()
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.NotContains(t, string(after), "country")
	assert.NotContains(t, string(after), "zip")
}

func TestRequest_MessagesDoNotSharePayloads(t *testing.T) {
	raw := json.RawMessage(`{"role":"model","parts":[{"functionCall":{"name":"get_weather","args":{"city":"Rome"}}}]}`)
	captured, err := MessageFromRaw(raw)
	require.NoError(t, err)

	input := Message{Role: RoleUser, Parts: []Part{
		{InlineData: &InlineData{MimeType: "image/png", Data: "aGVsbG8="}},
		{FunctionResponse: &FunctionResponse{Name: "get_weather", Response: json.RawMessage(`{"content":"sunny"}`)}},
	}}

	req, err := NewRequestBuilder().AddAllMessages(input, captured).Build()
	require.NoError(t, err)

	input.Parts[0].InlineData.Data = "changed"
	input.Parts[1].FunctionResponse.Response[2] = 'X'

	msgs := req.Messages()
	msgs[0].Parts[0].InlineData.Data = "x"
	msgs[0].Parts[1].FunctionResponse.Name = "other"
	msgs[1].Parts[0].FunctionCall.Name = "other"
	msgs[1].Parts[0].FunctionCall.Args[2] = 'X'

	again := req.Messages()
	assert.Equal(t, "aGVsbG8=", again[0].Parts[0].InlineData.Data)
	assert.Equal(t, "get_weather", again[0].Parts[1].FunctionResponse.Name)
	assert.JSONEq(t, `{"content":"sunny"}`, string(again[0].Parts[1].FunctionResponse.Response))
	assert.Equal(t, "get_weather", again[1].Parts[0].FunctionCall.Name)
	assert.JSONEq(t, `{"city":"Rome"}`, string(again[1].Parts[0].FunctionCall.Args))

	body, err := req.Body()
	require.NoError(t, err)
	contents := gjson.GetBytes(body, "contents")
	assert.Equal(t, "aGVsbG8=", contents.Get("0.parts.0.inlineData.data").String())
	assert.JSONEq(t, string(raw), contents.Get("1").Raw)
}

func TestRequest_BuildErrors(t *testing.T) {
	_, err := NewRequestBuilder().Model(" ").Build()
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewRequestBuilder().ResponseSchema(StringSchema("").Items(StringSchema(""))).Build()
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewRequestBuilder().Timeout(-time.Second).Build()
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewRequestBuilder().Execute(context.Background())
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRequest_ErrorsAreSticky(t *testing.T) {
	b := NewRequestBuilder().
		AddImageByLocalFile("photo.gif").
		AddImageByLocalFile("/does/not/exist.png")

	_, err := b.Build()
	require.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrRetrieval)
}

func TestRequest_AddAllMessagesVerbatim(t *testing.T) {
	raw := json.RawMessage(`{"role":"model","parts":[{"functionCall":{"name":"get_weather","args":{"city":"Rome"}},"thoughtSignature":"abc"}]}`)
	modelMsg, err := MessageFromRaw(raw)
	require.NoError(t, err)

	body := buildBody(t, NewRequestBuilder().
		AddMessage(RoleUser, "Weather?").
		AddAllMessages(modelMsg, Message{Role: RoleUser, Parts: []Part{{FunctionResponse: &FunctionResponse{
			Name:     "get_weather",
			Response: json.RawMessage(`{"content":"sunny"}`),
		}}}}))

	contents := body.Get("contents").Array()
	require.Len(t, contents, 3)
	assert.JSONEq(t, string(raw), contents[1].Raw)
	assert.Equal(t, "abc", contents[1].Get("parts.0.thoughtSignature").String())
	assert.Equal(t, "sunny", contents[2].Get("parts.0.functionResponse.response.content").String())
}

func TestRequest_Accessors(t *testing.T) {
	tool := weatherTool(t)
	req, err := NewRequestBuilder().
		Model(Model25Flash).
		Temperature(0.7).
		TopK(3).
		TopP(0.5).
		MaxOutputTokens(100).
		Thinking(512).
		Tools(tool).
		ParallelToolCalls(true).
		SystemInstruction("sys").
		ResponseMimeType("application/json").
		Timeout(30 * time.Second).
		Build()
	require.NoError(t, err)

	assert.Equal(t, Model25Flash, req.Model())
	assert.InDelta(t, 0.7, *req.Temperature(), 1e-9)
	assert.Equal(t, 3, *req.TopK())
	assert.InDelta(t, 0.5, *req.TopP(), 1e-9)
	assert.Equal(t, 100, *req.MaxOutputTokens())
	assert.Equal(t, 512, *req.ThinkingBudget())
	assert.Len(t, req.Tools(), 1)
	assert.True(t, req.ParallelToolCalls())
	assert.Equal(t, "sys", req.SystemInstruction())
	assert.Equal(t, "application/json", req.ResponseMimeType())
	assert.Equal(t, 30*time.Second, req.Timeout())

	*req.Temperature() = 2
	assert.InDelta(t, 0.7, *req.Temperature(), 1e-9)
}

func TestRequest_WithMessagesClonesEveryField(t *testing.T) {
	tool := weatherTool(t)
	var captured int
	req, err := NewRequestBuilder().
		Model(Model25Pro).
		Temperature(0.1).
		Thinking(64).
		Tools(tool).
		ParallelToolCalls(true).
		SafetySettings(SafetySetting{Category: HarmCategoryDangerousContent, Threshold: BlockLowAndAbove}).
		ResponseSchema(ObjectSchema()).
		ResponseMimeType("application/json").
		SystemInstruction("sys").
		Timeout(time.Minute).
		CaptureOnSuccess(func(*Response) { captured++ }).
		AddMessage(RoleUser, "hi").
		Build()
	require.NoError(t, err)

	next := req.withMessages([]Message{NewTextMessage(RoleUser, "a"), NewTextMessage(RoleModel, "b")})

	origBody, err := req.Body()
	require.NoError(t, err)
	nextBody, err := next.Body()
	require.NoError(t, err)

	for _, key := range []string{"systemInstruction", "safetySettings", "generationConfig", "tools", "toolConfig"} {
		assert.JSONEq(t, gjson.GetBytes(origBody, key).Raw, gjson.GetBytes(nextBody, key).Raw, key)
	}
	assert.Len(t, next.Messages(), 2)
	assert.Len(t, req.Messages(), 1)
	assert.Equal(t, req.RelativePath(), next.RelativePath())
	assert.Equal(t, req.Timeout(), next.Timeout())

	next.onSuccess(nil)
	assert.Equal(t, 1, captured)
}
