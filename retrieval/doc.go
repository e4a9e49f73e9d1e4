// Package retrieval answers similarity queries against the vector index.
//
// An Engine embeds a query with the same model the collection was indexed
// with, finds the nearest stored chunks by cosine distance, and returns
// them most similar first. Conversations feed the engine a cumulative
// query built from every user turn so far, which keeps short follow-ups
// like "那要吃什麼?" anchored to the topic under discussion.
package retrieval
