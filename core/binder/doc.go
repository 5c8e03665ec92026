// Package binder decodes HTTP request bodies into request structs. Only
// JSON is supported; it is the single body format the API accepts.
//
// Decoding is strict on purpose: unknown fields, trailing data, missing
// or wrong Content-Type, and oversized bodies are all rejected with
// sentinel errors the handlers map to 4xx responses. Prompts come from
// arbitrary clients, so bound string fields are additionally scrubbed of
// NUL bytes and non-printable control characters; tabs and line breaks
// survive because prompt bodies legitimately span lines.
//
//	var req EnqueueRequest
//	if err := binder.JSON()(r, &req); err != nil {
//		// errors.Is: ErrMissingContentType, ErrUnsupportedMediaType,
//		// ErrFailedToParseJSON
//	}
package binder
