// Package gemini is a typed client for the Gemini generateContent API.
//
// Requests are assembled with a [RequestBuilder], tools are declared with
// [NewTool] or [NewTypedTool], and parameter or response shapes with the
// [Schema] constructors or [SchemaFor]. [RequestBuilder.Execute] hands the
// request to a [CallHandler], which runs the function-calling loop:
//
//	client, err := gemini.NewClientFromEnv()
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.NewRequest().
//	    SystemInstruction("You are a concise weather assistant.").
//	    AddTool(weatherTool).
//	    AddMessage(gemini.RoleUser, "What's the weather in Rome?").
//	    Execute(ctx)
//	if err != nil {
//	    return err
//	}
//	if resp.HasRefusal() {
//	    return resp.FailOnRefusal()
//	}
//	fmt.Println(resp.Text())
//
// Structured output pairs [RequestBuilder.ResponseSchema] with
// ResponseMimeType("application/json") and [Decode]:
//
//	resp, err := client.NewRequest().
//	    ResponseMimeType("application/json").
//	    ResponseSchema(gemini.SchemaFor[Forecast]()).
//	    AddMessage(gemini.RoleUser, "Forecast for Oslo").
//	    Execute(ctx)
//	forecast, err := gemini.Decode[Forecast](resp)
//
// Errors wrap the sentinels [ErrConfiguration], [ErrRetrieval],
// [ErrRequestRejected], [ErrResponseUnusable] and [ErrTurnLimitExceeded];
// transport failures wrap the sentinels of package transport.
package gemini
