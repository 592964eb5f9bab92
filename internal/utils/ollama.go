package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// EmbeddingDim 向量维度（bge-base-zh 系列模型为 768 维）
const EmbeddingDim = 768

// embeddingMaxRunes 送入向量服务的文本长度上限
const embeddingMaxRunes = 512

// EmbeddingRequest Ollama embedding API 请求结构
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingResponse Ollama embedding API 响应结构
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embedder 文本向量化接口
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// OllamaEmbedder 基于本地 Ollama 的向量化实现
type OllamaEmbedder struct{}

// Embed 实现 Embedder 接口
func (OllamaEmbedder) Embed(text string) ([]float32, error) {
	return GenerateEmbedding(text)
}

// GenerateEmbedding 调用本地 Ollama API 生成向量
func GenerateEmbedding(text string) ([]float32, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "quentinz/bge-base-zh-v1.5"
	}

	// 截断过长文本，超出部分对向量质量贡献很小
	if runes := []rune(text); len(runes) > embeddingMaxRunes {
		text = string(runes[:embeddingMaxRunes])
	}

	reqBody := EmbeddingRequest{
		Model:  model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %v", err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/api/embeddings", host), "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned error status: %d", resp.StatusCode)
	}

	var result EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response failed: %v", err)
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama 返回了空向量")
	}
	if len(result.Embedding) != EmbeddingDim {
		return nil, fmt.Errorf("向量维度不匹配: 期望 %d, 实际 %d", EmbeddingDim, len(result.Embedding))
	}

	return result.Embedding, nil
}
