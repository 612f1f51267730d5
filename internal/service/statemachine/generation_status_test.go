package statemachine

import (
	"testing"
)

func TestAggregateEmptyBatch(t *testing.T) {
	result := Aggregate(nil)
	if result.Status != AggregateCompleted {
		t.Fatalf("empty batch should be completed, got %s", result.Status)
	}
	if result.Progress != 100 {
		t.Fatalf("empty batch progress should be 100, got %d", result.Progress)
	}
}

func TestAggregateAllSuccess(t *testing.T) {
	result := Aggregate([]GenerationStatus{GenerationSuccess, GenerationSuccess})
	if result.Status != AggregateCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if result.Progress != 100 || result.Succeeded != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAggregateMixedOutcome(t *testing.T) {
	// 2 成功 + 1 失败 => completed_with_errors，进度 2/3
	result := Aggregate([]GenerationStatus{GenerationSuccess, GenerationFailed, GenerationSuccess})
	if result.Status != AggregateCompletedWithErrors {
		t.Fatalf("expected completed_with_errors, got %s", result.Status)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Progress != 66 {
		t.Fatalf("expected progress 66, got %d", result.Progress)
	}
}

func TestAggregateStillGenerating(t *testing.T) {
	result := Aggregate([]GenerationStatus{GenerationSuccess, GenerationGenerating, GenerationQueued})
	if result.Status != AggregateGenerating {
		t.Fatalf("expected generating, got %s", result.Status)
	}
	if result.Progress != 33 {
		t.Fatalf("expected progress 33, got %d", result.Progress)
	}
}

func TestIsGenerationDone(t *testing.T) {
	if !IsGenerationDone(GenerationSuccess) || !IsGenerationDone(GenerationFailed) {
		t.Fatalf("terminal statuses should be done")
	}
	if IsGenerationDone(GenerationQueued) || IsGenerationDone(GenerationGenerating) || IsGenerationDone(GenerationPending) {
		t.Fatalf("non-terminal statuses should not be done")
	}
}
