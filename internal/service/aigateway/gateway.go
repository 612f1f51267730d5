package aigateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/pkg/llm"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/prompt"
	"k8s.io/klog/v2"
)

// ErrRateLimit AI 服务限流，调用方据此决定是否保持当前阶段
var ErrRateLimit = errors.New("ai provider rate limited")

// Gateway 所有 AI 调用的统一入口
// 每次调用留存 AIRequestLog：sending -> success/error/rate_limit
type Gateway struct {
	generator llm.Generator
	logRepo   repository.AILogRepository
}

func NewGateway(generator llm.Generator, logRepo repository.AILogRepository) *Gateway {
	return &Gateway{
		generator: generator,
		logRepo:   logRepo,
	}
}

// Request 单次 AI 调用
type Request struct {
	ProjectID uint
	Phase     prompt.Phase
	// Vars 替换阶段模板中的 {placeholder}
	Vars map[string]string
	// Context 作为 user 消息发送的上下文载荷
	Context string
}

// Execute 执行一次带日志的 AI 调用
// 空响应按错误记录日志，但对调用方返回 ("", nil)，由调用方做降级处理
func (g *Gateway) Execute(ctx context.Context, req Request) (string, error) {
	tmpl, err := prompt.Get(req.Phase)
	if err != nil {
		return "", err
	}
	system := prompt.Render(tmpl.SystemPrompt(), req.Vars)

	now := time.Now()
	logEntry := &model.AIRequestLog{
		RequestID:    uuid.NewString(),
		ProjectID:    req.ProjectID,
		Phase:        string(req.Phase),
		Prompt:       system,
		InputContext: req.Context,
		Status:       "sending",
		RequestAt:    &now,
	}
	if err := g.logRepo.Create(logEntry); err != nil {
		// 日志写入失败不阻断调用
		klog.Errorf("AI请求日志创建失败: projectID=%d, phase=%s, err=%v", req.ProjectID, req.Phase, err)
	}

	klog.V(6).Infof("AI调用开始: projectID=%d, phase=%s, requestID=%s", req.ProjectID, req.Phase, logEntry.RequestID)

	response, callErr := g.generator.Generate(ctx, system, req.Context)
	if callErr != nil {
		if isRateLimited(callErr) {
			g.finalize(logEntry, "", "rate_limit", callErr.Error())
			klog.Warningf("AI调用被限流: projectID=%d, phase=%s, err=%v", req.ProjectID, req.Phase, callErr)
			return "", ErrRateLimit
		}
		g.finalize(logEntry, "", "error", callErr.Error())
		klog.Errorf("AI调用失败: projectID=%d, phase=%s, err=%v", req.ProjectID, req.Phase, callErr)
		return "", callErr
	}

	if strings.TrimSpace(response) == "" {
		g.finalize(logEntry, response, "error", "empty response from model")
		klog.Warningf("AI返回空响应: projectID=%d, phase=%s", req.ProjectID, req.Phase)
		return "", nil
	}

	g.finalize(logEntry, response, "success", "")
	klog.V(6).Infof("AI调用成功: projectID=%d, phase=%s, responseLength=%d", req.ProjectID, req.Phase, len(response))
	return response, nil
}

// finalize 落库调用结果与耗时
func (g *Gateway) finalize(logEntry *model.AIRequestLog, response, status, errMsg string) {
	now := time.Now()
	logEntry.ResponseRaw = response
	logEntry.Status = status
	logEntry.ErrorMessage = errMsg
	logEntry.ResponseAt = &now
	if logEntry.RequestAt != nil {
		logEntry.DurationSec = now.Sub(*logEntry.RequestAt).Seconds()
	}
	if err := g.logRepo.Save(logEntry); err != nil {
		klog.Errorf("AI请求日志更新失败: requestID=%s, err=%v", logEntry.RequestID, err)
	}
}

// isRateLimited 按错误文本识别限流
// OpenAI 兼容网关返回 429/too many requests，Gemini 类返回 RESOURCE_EXHAUSTED
func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource_exhausted")
}
