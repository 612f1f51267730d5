package statemachine

// GenerationStatus 单个生成单元（章节内容/图示图片）的状态
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"    // 未入队
	GenerationQueued     GenerationStatus = "queued"     // 已入队等待
	GenerationGenerating GenerationStatus = "generating" // 生成中
	GenerationSuccess    GenerationStatus = "success"    // 生成成功
	GenerationFailed     GenerationStatus = "failed"     // 生成失败
)

// IsGenerationDone 单元是否已到达终态
func IsGenerationDone(status GenerationStatus) bool {
	return status == GenerationSuccess || status == GenerationFailed
}

// AggregateStatus 一批生成单元的聚合状态
type AggregateStatus string

const (
	AggregateCompleted           AggregateStatus = "completed"
	AggregateCompletedWithErrors AggregateStatus = "completed_with_errors"
	AggregateGenerating          AggregateStatus = "generating"
)

// AggregateResult 聚合结果，Progress 为成功单元占比（0-100）
type AggregateResult struct {
	Status    AggregateStatus `json:"status"`
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Progress  int             `json:"progress"`
}

// Aggregate 计算一批生成单元的聚合状态
// 空批次视为 completed（无事可做即完成）；全部到达终态且无失败为 completed，
// 有失败为 completed_with_errors，否则仍在 generating
func Aggregate(statuses []GenerationStatus) AggregateResult {
	result := AggregateResult{Total: len(statuses)}

	if result.Total == 0 {
		result.Status = AggregateCompleted
		result.Progress = 100
		return result
	}

	done := 0
	for _, s := range statuses {
		switch s {
		case GenerationSuccess:
			result.Succeeded++
			done++
		case GenerationFailed:
			result.Failed++
			done++
		}
	}

	result.Progress = result.Succeeded * 100 / result.Total

	switch {
	case done < result.Total:
		result.Status = AggregateGenerating
	case result.Failed > 0:
		result.Status = AggregateCompletedWithErrors
	default:
		result.Status = AggregateCompleted
	}

	return result
}
