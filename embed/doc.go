// Package embed defines the text embedding abstraction used by the local
// query index. The openai subpackage talks to any OpenAI-compatible
// embedding API; the mock subpackage provides a deterministic test double.
package embed
