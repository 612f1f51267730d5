package llm

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"k8s.io/klog/v2"
)

// Generator 网关依赖的最小聊天接口，便于测试注入假实现
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// ChatModel 封装 Eino 原生的 OpenAI ChatModel
// 直接使用 cloudwego/eino-ext/components/model/openai 实现
type ChatModel struct {
	chatModel model.ToolCallingChatModel
}

// NewChatModel 创建 LLM ChatModel
// apiKey: OpenAI API Key
// baseURL: API 基础 URL (可选，为空时使用默认 OpenAI URL)
// modelName: 模型名称 (如 "gpt-4o" 等)
// maxTokens: 最大生成 token 数
func NewChatModel(apiKey, baseURL, modelName string, maxTokens int) (*ChatModel, error) {
	klog.V(6).Infof("[ChatModel] 创建 OpenAI ChatModel: model=%s, baseURL=%s", modelName, baseURL)

	config := &openai.ChatModelConfig{
		APIKey: apiKey,
		Model:  modelName,
	}

	if baseURL != "" {
		config.BaseURL = baseURL
	}

	if maxTokens > 0 {
		config.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(context.Background(), config)
	if err != nil {
		klog.Errorf("[ChatModel] 创建 ChatModel 失败: %v", err)
		return nil, err
	}

	klog.V(6).Infof("[ChatModel] ChatModel 创建成功")
	return &ChatModel{chatModel: chatModel}, nil
}

// Generate 同步生成 LLM 响应
// system: 系统提示词；user: 用户上下文
func (m *ChatModel) Generate(ctx context.Context, system, user string) (string, error) {
	input := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	klog.V(6).Infof("[ChatModel] Generate 开始: systemLength=%d, userLength=%d", len(system), len(user))
	klog.V(8).Infof("[ChatModel] system=%s", system)
	klog.V(8).Infof("[ChatModel] user=%s", user)

	resp, err := m.chatModel.Generate(ctx, input)
	if err != nil {
		klog.Errorf("[ChatModel] Generate 失败: %v", err)
		return "", err
	}

	klog.V(6).Infof("[ChatModel] Generate 完成: responseLength=%d", len(resp.Content))
	return resp.Content, nil
}
