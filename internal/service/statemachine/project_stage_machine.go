package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"
)

// ProjectStage 定义 RFP 项目的所有流水线阶段
type ProjectStage string

const (
	StageDraft                  ProjectStage = "draft"                   // 仅创建，未初始化
	StageInitialized            ProjectStage = "initialized"             // 领域识别+初始研究完成，项目访谈进行中
	StageInfoGathered           ProjectStage = "info_gathered"           // 项目访谈完成
	StagePracticesRefined       ProjectStage = "practices_refined"       // 最佳实践已按访谈结果精炼
	StageSpecificationsGathered ProjectStage = "specifications_gathered" // 后采集字段已物化，实践访谈进行中
	StagePracticesGapGathered   ProjectStage = "practices_gap_gathered"  // 实践访谈完成
	StageSectionsGenerated      ProjectStage = "sections_generated"      // 文档结构已生成
	StageGeneratingContent      ProjectStage = "generating_content"      // 章节内容异步生成中
	StageContentGenerated       ProjectStage = "content_generated"       // 全部章节内容生成成功
	StageGeneratingImages       ProjectStage = "generating_images"       // 图示图片异步生成中
	StageImagesGenerated        ProjectStage = "images_generated"        // 全部图片生成成功，文档可编辑
	StageDocumentLocked         ProjectStage = "document_locked"         // 文档锁定，禁止编辑
	StageCompletedWithErrors    ProjectStage = "completed_with_errors"   // 生成结束但存在失败单元
	StageCompleted              ProjectStage = "completed"               // 终态
)

// StageTransition 定义阶段迁移
type StageTransition struct {
	From ProjectStage
	To   ProjectStage
}

// ProjectStageMachine 项目阶段状态机
type ProjectStageMachine struct {
	allowedTransitions map[StageTransition]bool
}

// NewProjectStageMachine 创建项目阶段状态机
func NewProjectStageMachine() *ProjectStageMachine {
	sm := &ProjectStageMachine{
		allowedTransitions: make(map[StageTransition]bool),
	}

	// 合法迁移路径
	// 主线：draft -> ... -> images_generated -> document_locked/completed
	// 错误分支：generating_* -> completed_with_errors，可回退重试
	transitions := []StageTransition{
		// 主线流程
		{StageDraft, StageInitialized},
		{StageInitialized, StageInfoGathered},
		{StageInfoGathered, StagePracticesRefined},
		{StagePracticesRefined, StageSpecificationsGathered},
		{StageSpecificationsGathered, StagePracticesGapGathered},
		{StagePracticesGapGathered, StageSectionsGenerated},
		{StageSectionsGenerated, StageGeneratingContent},
		{StageGeneratingContent, StageContentGenerated},
		{StageContentGenerated, StageGeneratingImages},
		{StageGeneratingImages, StageImagesGenerated},
		{StageImagesGenerated, StageDocumentLocked},
		{StageImagesGenerated, StageCompleted},
		{StageDocumentLocked, StageCompleted},

		// 部分失败分支
		{StageGeneratingContent, StageCompletedWithErrors},
		{StageGeneratingImages, StageCompletedWithErrors},

		// 失败后的重试/回退
		{StageCompletedWithErrors, StageGeneratingContent},
		{StageCompletedWithErrors, StageGeneratingImages},
		{StageCompletedWithErrors, StageImagesGenerated},
		{StageContentGenerated, StageGeneratingContent},

		// 解锁
		{StageDocumentLocked, StageImagesGenerated},
	}

	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}

	return sm
}

// CanTransition 检查阶段迁移是否合法
func (sm *ProjectStageMachine) CanTransition(from, to ProjectStage) bool {
	if from == to {
		return false // 不允许阶段不变
	}
	return sm.allowedTransitions[StageTransition{From: from, To: to}]
}

// ValidateTransition 验证阶段迁移并返回错误
func (sm *ProjectStageMachine) ValidateTransition(from, to ProjectStage) error {
	if !sm.CanTransition(from, to) {
		return &InvalidStageTransitionError{
			From: string(from),
			To:   string(to),
		}
	}
	return nil
}

// Transition 执行阶段迁移（带日志）
func (sm *ProjectStageMachine) Transition(from, to ProjectStage, projectID uint) error {
	if err := sm.ValidateTransition(from, to); err != nil {
		klog.V(6).Infof("项目阶段迁移被拒绝: projectID=%d, %s -> %s, error=%v",
			projectID, from, to, err)
		return err
	}

	klog.V(6).Infof("项目阶段迁移成功: projectID=%d, %s -> %s", projectID, from, to)
	return nil
}

// InvalidStageTransitionError 无效的阶段迁移错误
type InvalidStageTransitionError struct {
	From string
	To   string
}

func (e *InvalidStageTransitionError) Error() string {
	return fmt.Sprintf("invalid project stage transition: %s -> %s", e.From, e.To)
}

// IsTerminal 判断阶段是否为终态
func IsTerminal(stage ProjectStage) bool {
	return stage == StageCompleted
}

// IsLocked 判断文档是否处于禁止编辑的阶段
func IsLocked(stage ProjectStage) bool {
	return stage == StageDocumentLocked || stage == StageCompleted
}

// IsGenerating 判断是否处于异步生成阶段
func IsGenerating(stage ProjectStage) bool {
	return stage == StageGeneratingContent || stage == StageGeneratingImages
}
