package subscriber

import (
	"context"

	"github.com/rfpforge/backend/internal/eventbus"
	"k8s.io/klog/v2"
)

// ImageDispatcher 图片派发端口（ContentService 实现）
type ImageDispatcher interface {
	DispatchImages(ctx context.Context, projectID uint) (int, error)
}

// PipelineSubscriber 流水线事件订阅器
// 内容生成全部成功后自动派发图片任务，把两段生成串成一条流水线
type PipelineSubscriber struct {
	dispatcher   ImageDispatcher
	unsubscribes []func()
}

func NewPipelineSubscriber(dispatcher ImageDispatcher) *PipelineSubscriber {
	return &PipelineSubscriber{dispatcher: dispatcher}
}

// Register 挂接到事件总线
func (p *PipelineSubscriber) Register(bus *eventbus.Bus) {
	p.unsubscribes = append(p.unsubscribes,
		bus.Subscribe(eventbus.EventStageChanged, p.onStageChanged),
		bus.Subscribe(eventbus.EventContentCompleted, p.onContentCompleted),
		bus.Subscribe(eventbus.EventImagesCompleted, p.onImagesCompleted),
	)
}

// Unregister 解除全部订阅
func (p *PipelineSubscriber) Unregister() {
	for _, unsubscribe := range p.unsubscribes {
		unsubscribe()
	}
	p.unsubscribes = nil
}

func (p *PipelineSubscriber) onStageChanged(ctx context.Context, event eventbus.PipelineEvent) error {
	klog.V(6).Infof("项目阶段迁移: projectID=%d, %s -> %s", event.ProjectID, event.FromStage, event.ToStage)
	return nil
}

// onContentCompleted 内容全部成功时异步派发图片；存在失败章节则停在错误态等用户重试
func (p *PipelineSubscriber) onContentCompleted(ctx context.Context, event eventbus.PipelineEvent) error {
	if event.HasErrors {
		klog.Warningf("章节内容生成存在失败，暂不派发图片: projectID=%d", event.ProjectID)
		return nil
	}

	// 异步派发，避免在状态查询的调用链里做重活
	go func(projectID uint) {
		if _, err := p.dispatcher.DispatchImages(context.Background(), projectID); err != nil {
			klog.Errorf("自动派发图片失败: projectID=%d, err=%v", projectID, err)
		}
	}(event.ProjectID)
	return nil
}

func (p *PipelineSubscriber) onImagesCompleted(ctx context.Context, event eventbus.PipelineEvent) error {
	if event.HasErrors {
		klog.Warningf("图示图片生成存在失败: projectID=%d", event.ProjectID)
		return nil
	}
	klog.V(6).Infof("图示图片全部生成完成: projectID=%d", event.ProjectID)
	return nil
}
