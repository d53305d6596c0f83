// Package llm generates text for prompt-chain steps.
//
// A Router picks a backend from the model name: "claude-" models go to
// Anthropic (the Messages API or AWS Bedrock), "gemini-" models go to Gemini
// and everything else goes to OpenAI. Plain OpenAI completions use go-openai;
// OpenAI and Anthropic web-search calls use a small JSON transport that keeps
// the status code and Retry-After hints needed to classify failures.
//
// Provider failures are wrapped with services.ErrTransient when they look
// like rate limiting and services.ErrProviderFatal otherwise. RetryingGenerator
// retries a transient failure exactly once with a reduced budget; a second
// failure is always fatal.
package llm
