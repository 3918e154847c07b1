// Package medgemma is an on-device inference runtime for a multimodal
// medical vision-language model. It loads a four-session ONNX Runtime
// model directory (vision encoder, vision projection, token embeddings,
// decoder) plus a tokenizer, and runs a staged pipeline — optional image
// encoding, embedding fusion, chunked prefill, autoregressive decode — that
// favors low peak memory over throughput, since it targets constrained
// on-device hardware rather than a server GPU.
package medgemma
