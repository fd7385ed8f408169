// Package embeddings provides embedding generation via multiple providers.
//
// The semantic relevance strategy embeds chunked file contents and issue
// text. Two providers are supported: any openai-compatible HTTP endpoint
// (TEI, Ollama, OpenAI) via langchaingo, and local ONNX models via
// fastembed (CGO builds only).
package embeddings
