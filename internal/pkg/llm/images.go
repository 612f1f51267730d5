package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"k8s.io/klog/v2"
)

// ImageGenerator 图片生成接口，便于测试注入假实现
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ImageClient OpenAI 兼容的图片生成客户端
// Eino 的 ChatModel 不覆盖 images 端点，这里直接走 HTTP
type ImageClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewImageClient(baseURL, apiKey, model string) *ImageClient {
	return &ImageClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateImage 生成一张图片并返回解码后的字节
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	klog.V(6).Infof("[ImageClient] 图片生成请求: model=%s, promptLength=%d", c.Model, len(prompt))

	body, err := json.Marshal(imageRequest{
		Model:          c.Model,
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		klog.Errorf("[ImageClient] 请求失败: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		klog.Errorf("[ImageClient] 非 200 响应: status=%d, body=%s", resp.StatusCode, string(data))
		return nil, fmt.Errorf("image API returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed imageResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("image API error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("no image in response")
	}

	image, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}

	klog.V(6).Infof("[ImageClient] 图片生成完成: bytes=%d", len(image))
	return image, nil
}
