package eventbus

import "context"

type PipelineEventType string

const (
	// EventStageChanged 项目阶段发生迁移
	EventStageChanged PipelineEventType = "StageChanged"
	// EventContentCompleted 全部章节内容到达终态（含部分失败）
	EventContentCompleted PipelineEventType = "ContentCompleted"
	// EventImagesCompleted 全部图示图片到达终态（含部分失败）
	EventImagesCompleted PipelineEventType = "ImagesCompleted"
)

type PipelineEvent struct {
	Type      PipelineEventType
	ProjectID uint
	FromStage string
	ToStage   string
	// HasErrors 聚合结果中是否存在失败单元
	HasErrors bool
}

type PipelineEventHandler func(ctx context.Context, event PipelineEvent) error
