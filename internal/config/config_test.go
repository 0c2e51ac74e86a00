package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("unexpected api port: %s", cfg.APIPort)
	}
	if cfg.QdrantCollection != "policy_chunks" {
		t.Fatalf("unexpected collection: %s", cfg.QdrantCollection)
	}
	if cfg.OllamaGenModel != "mistral" || cfg.OllamaEmbedModel != "nomic-embed-text" {
		t.Fatalf("unexpected models: %s / %s", cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	}
	if cfg.EmbeddingDimension != 1536 {
		t.Fatalf("unexpected dimension: %d", cfg.EmbeddingDimension)
	}
	if cfg.RAGTopK != 5 || cfg.RAGOverfetchFactor != 5 {
		t.Fatalf("unexpected retrieval settings: topk=%d overfetch=%d", cfg.RAGTopK, cfg.RAGOverfetchFactor)
	}
	if cfg.ConfidenceThreshold != 0.60 {
		t.Fatalf("unexpected threshold: %v", cfg.ConfidenceThreshold)
	}
	if cfg.LLMTemperature != 0.3 || cfg.LLMMaxTokens != 2000 {
		t.Fatalf("unexpected llm settings: temp=%v tokens=%d", cfg.LLMTemperature, cfg.LLMMaxTokens)
	}
	if !cfg.BreakerEnabled {
		t.Fatalf("breaker should default to enabled")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("QDRANT_COLLECTION", "chunks_v2")
	t.Setenv("EMBEDDING_DIMENSION", "768")
	t.Setenv("TOP_K_CHUNKS", "8")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.75")
	t.Setenv("BREAKER_ENABLED", "false")

	cfg := Load()

	if cfg.APIPort != "9090" {
		t.Fatalf("unexpected api port: %s", cfg.APIPort)
	}
	if cfg.QdrantCollection != "chunks_v2" {
		t.Fatalf("unexpected collection: %s", cfg.QdrantCollection)
	}
	if cfg.EmbeddingDimension != 768 || cfg.RAGTopK != 8 {
		t.Fatalf("unexpected settings: dim=%d topk=%d", cfg.EmbeddingDimension, cfg.RAGTopK)
	}
	if cfg.ConfidenceThreshold != 0.75 {
		t.Fatalf("unexpected threshold: %v", cfg.ConfidenceThreshold)
	}
	if cfg.BreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSION", "not-a-number")
	t.Setenv("CONFIDENCE_THRESHOLD", "high")

	cfg := Load()

	if cfg.EmbeddingDimension != 1536 {
		t.Fatalf("malformed int should fall back, got %d", cfg.EmbeddingDimension)
	}
	if cfg.ConfidenceThreshold != 0.60 {
		t.Fatalf("malformed float should fall back, got %v", cfg.ConfidenceThreshold)
	}
}
