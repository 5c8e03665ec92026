// Package vectorizer converts text into embedding vectors through the
// OpenAI or Gemini APIs behind one interface.
//
// The search handler embeds each prompt with a Vectorizer to build its
// kNN query against the knowledge base index. Both providers expose the
// same surface:
//
//	v, err := vectorizer.NewOpenAI(apiKey,
//		vectorizer.WithOpenAIModel(vectorizer.OpenAITextEmbedding3Small),
//		vectorizer.WithOpenAIDimensions(1536),
//	)
//	if err != nil {
//		return err
//	}
//	vec, err := v.Embed(ctx, "capital of France")
//
// EmbedBatch is the bulk form and keeps output aligned with input
// order. Dimension choices are validated at construction against what
// the selected model supports, so a misconfigured worker fails at
// startup rather than on the first request.
package vectorizer
