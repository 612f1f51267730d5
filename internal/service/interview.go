package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rfpforge/backend/internal/eventbus"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/aigateway"
	"github.com/rfpforge/backend/internal/service/prompt"
	"github.com/rfpforge/backend/internal/service/statemachine"
	"github.com/rfpforge/backend/internal/utils"
	"k8s.io/klog/v2"
)

// AIGateway 访谈与生成服务依赖的 AI 调用端口
type AIGateway interface {
	Execute(ctx context.Context, req aigateway.Request) (string, error)
}

// 每轮最多物化的新字段数，轮次编号按此推导
const fieldsPerRound = 4

// InterviewService 访谈轮执行器
// 项目范围与实践范围共用一套轮逻辑，仅阶段与字段表不同
type InterviewService struct {
	gateway      AIGateway
	projectRepo  repository.ProjectRepository
	forms        InputCollection
	practices    InputCollection
	stageMachine *statemachine.ProjectStageMachine
	bus          *eventbus.Bus
}

func NewInterviewService(
	gateway AIGateway,
	projectRepo repository.ProjectRepository,
	forms InputCollection,
	practices InputCollection,
	bus *eventbus.Bus,
) *InterviewService {
	return &InterviewService{
		gateway:      gateway,
		projectRepo:  projectRepo,
		forms:        forms,
		practices:    practices,
		stageMachine: statemachine.NewProjectStageMachine(),
		bus:          bus,
	}
}

// RoundResult 一轮访谈的结果
type RoundResult struct {
	Round         int              `json:"round"`
	Outcome       string           `json:"outcome"` // complete, ongoing
	Score         float64          `json:"score"`
	NewFields     []InterviewField `json:"new_fields"`
	StageAdvanced bool             `json:"stage_advanced"`
	RateLimited   bool             `json:"rate_limited"`
}

// roundPayload AI 响应的结构
// field_key 与 field_name 两种命名都接受（模型偶发漂移），统一归一到 field_key
type roundPayload struct {
	Status            string         `json:"status"`
	CompletenessScore float64        `json:"completeness_score"`
	ResearchNotes     string         `json:"research_notes"`
	Fields            []fieldPayload `json:"fields"`
}

type fieldPayload struct {
	FieldKey         string        `json:"field_key"`
	FieldName        string        `json:"field_name"`
	Label            string        `json:"label"`
	ComponentType    string        `json:"component_type"`
	DataType         string        `json:"data_type_validation"`
	Options          []string      `json:"options"`
	Tooltip          string        `json:"tooltip"`
	SuggestedAnswers []string      `json:"suggested_answers"`
	DependsOn        dependsOnRule `json:"depends_on"`
	SpecifyTriggers  []string      `json:"specify_triggers"`
}

// dependsOnRule 字段依赖规则：仅当前置字段答了指定值时才展示本字段
// 模型偶发只回一个裸 field_key 字符串，按无值依赖兼容
type dependsOnRule struct {
	FieldKey string `json:"field_key"`
	Value    string `json:"value"`
}

func (r *dependsOnRule) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err == nil {
		r.FieldKey = strings.TrimSpace(key)
		r.Value = ""
		return nil
	}
	type plain dependsOnRule
	return json.Unmarshal(data, (*plain)(r))
}

// encode 落库形式：无依赖存空串，有依赖存 JSON 规则
func (r dependsOnRule) encode() string {
	r.FieldKey = strings.TrimSpace(r.FieldKey)
	if r.FieldKey == "" {
		return ""
	}
	return utils.ToJSON(r)
}

// normalizedKey 归一字段键：优先 field_key，缺失时退回 field_name
func (p *fieldPayload) normalizedKey() string {
	key := strings.TrimSpace(p.FieldKey)
	if key == "" {
		key = strings.TrimSpace(p.FieldName)
	}
	return key
}

// RunRound 执行一轮访谈
// 限流/调用失败/解析失败一律视为 ongoing，不改阶段不丢数据
func (s *InterviewService) RunRound(ctx context.Context, projectID uint, scope InterviewScope) (*RoundResult, error) {
	project, err := s.projectRepo.Get(projectID)
	if err != nil {
		return nil, err
	}

	collection, phase, requiredStage, nextStage, err := s.scopeBindings(scope)
	if err != nil {
		return nil, err
	}
	if statemachine.ProjectStage(project.CurrentStage) != requiredStage {
		return nil, fmt.Errorf("%w: stage=%s, scope=%s", ErrInvalidStage, project.CurrentStage, scope)
	}

	inputs, err := collection.List(projectID)
	if err != nil {
		return nil, err
	}

	result := &RoundResult{
		Round:   len(inputs)/fieldsPerRound + 1,
		Outcome: "ongoing",
		Score:   s.currentResult(project, scope).Score,
	}

	response, err := s.gateway.Execute(ctx, aigateway.Request{
		ProjectID: projectID,
		Phase:     phase,
		Vars:      map[string]string{"language": project.Language},
		Context:   s.buildRoundContext(project, scope, inputs),
	})
	if err != nil {
		if errors.Is(err, aigateway.ErrRateLimit) {
			klog.Warningf("访谈轮被限流: projectID=%d, scope=%s, round=%d", projectID, scope, result.Round)
			result.RateLimited = true
			return result, nil
		}
		klog.Errorf("访谈轮调用失败: projectID=%d, scope=%s, err=%v", projectID, scope, err)
		return result, nil
	}
	if response == "" {
		return result, nil
	}

	var payload roundPayload
	if err := json.Unmarshal([]byte(utils.ExtractJSON(response)), &payload); err != nil {
		klog.Warningf("访谈响应解析失败，按 ongoing 处理: projectID=%d, scope=%s, err=%v", projectID, scope, err)
		return result, nil
	}

	// 完整度分数单调不减
	stored := s.currentResult(project, scope)
	if payload.CompletenessScore > stored.Score {
		stored.Score = payload.CompletenessScore
	}
	result.Score = stored.Score
	if notes := strings.TrimSpace(payload.ResearchNotes); notes != "" {
		stored.ResearchNotes = notes
	}

	newFields, err := s.materializeFields(projectID, collection, payload.Fields, result.Round)
	if err != nil {
		return nil, err
	}
	result.NewFields = newFields

	// AI 宣告完成，或本轮没有任何新字段（含全部命中去重）时终止访谈
	if payload.Status == "complete" || len(newFields) == 0 {
		result.Outcome = "complete"
		stored.Status = "complete"
		if err := s.projectRepo.Save(project); err != nil {
			return nil, err
		}
		if err := s.advanceStage(ctx, project, nextStage); err != nil {
			return nil, err
		}
		result.StageAdvanced = true
		return result, nil
	}

	stored.Status = "ongoing"
	if err := s.projectRepo.Save(project); err != nil {
		return nil, err
	}
	return result, nil
}

// Answer 写入字段作答
// 命中 specify_triggers 的选项且带补充说明时，存为 "选项: 说明"
func (s *InterviewService) Answer(scope InterviewScope, inputID uint, value, elaboration string) error {
	collection, err := s.collection(scope)
	if err != nil {
		return err
	}

	field, err := collection.Get(inputID)
	if err != nil {
		return err
	}

	stored := value
	if elaboration != "" && triggersSpecify(field.SpecifyTriggers, value) {
		stored = value + ": " + elaboration
	}
	return collection.SetAnswer(inputID, stored)
}

// MarkIrrelevant 将字段标记为与项目无关，主题进入 rejected 列表
func (s *InterviewService) MarkIrrelevant(scope InterviewScope, inputID uint, reason string) error {
	collection, err := s.collection(scope)
	if err != nil {
		return err
	}
	return collection.MarkIrrelevant(inputID, reason)
}

// ListFields 取某范围的全部访谈字段
func (s *InterviewService) ListFields(projectID uint, scope InterviewScope) ([]InterviewField, error) {
	collection, err := s.collection(scope)
	if err != nil {
		return nil, err
	}
	return collection.List(projectID)
}

func (s *InterviewService) collection(scope InterviewScope) (InputCollection, error) {
	switch scope {
	case ScopeProject:
		return s.forms, nil
	case ScopePractices:
		return s.practices, nil
	default:
		return nil, fmt.Errorf("unknown interview scope: %s", scope)
	}
}

// scopeBindings 范围 -> (字段表, 提示词阶段, 要求阶段, 完成后的阶段)
func (s *InterviewService) scopeBindings(scope InterviewScope) (InputCollection, prompt.Phase, statemachine.ProjectStage, statemachine.ProjectStage, error) {
	switch scope {
	case ScopeProject:
		return s.forms, prompt.PhaseInterviewerProject,
			statemachine.StageInitialized, statemachine.StageInfoGathered, nil
	case ScopePractices:
		return s.practices, prompt.PhaseInterviewerPractices,
			statemachine.StageSpecificationsGathered, statemachine.StagePracticesGapGathered, nil
	default:
		return nil, "", "", "", fmt.Errorf("unknown interview scope: %s", scope)
	}
}

func (s *InterviewService) currentResult(project *model.Project, scope InterviewScope) *model.InterviewResult {
	if scope == ScopePractices {
		return &project.PracticesInterview
	}
	return &project.ProjectInterview
}

// buildRoundContext 组装访谈上下文：项目概况、研究结论、已答字段、拒答主题
func (s *InterviewService) buildRoundContext(project *model.Project, scope InterviewScope, inputs []InterviewField) string {
	var b strings.Builder

	b.WriteString("## Project\n")
	b.WriteString("Name: " + project.Name + "\n")
	b.WriteString("Description: " + project.Description + "\n")

	if scope == ScopePractices && project.RefinedPractices != "" {
		b.WriteString("\n## Refined best practices\n")
		b.WriteString(project.RefinedPractices + "\n")
	} else if project.InitialPractices != "" {
		b.WriteString("\n## Domain research\n")
		b.WriteString(project.InitialPractices + "\n")
	}

	if notes := s.currentResult(project, scope).ResearchNotes; notes != "" {
		b.WriteString("\n## Your notes from earlier rounds\n")
		b.WriteString(notes + "\n")
	}

	var answered, pending, rejected []string
	for _, in := range inputs {
		switch {
		case in.IsIrrelevant:
			entry := in.Label
			if in.IrrelevantReason != "" {
				entry += " (reason: " + in.IrrelevantReason + ")"
			}
			rejected = append(rejected, entry)
		case in.UserValue != "":
			answered = append(answered, in.Label+": "+in.UserValue)
		default:
			pending = append(pending, in.FieldKey)
		}
	}

	if len(answered) > 0 {
		b.WriteString("\n## Answers so far\n")
		for _, a := range answered {
			b.WriteString("- " + a + "\n")
		}
	}
	if len(rejected) > 0 {
		b.WriteString("\n## Topics the user marked irrelevant (never ask again)\n")
		for _, r := range rejected {
			b.WriteString("- " + r + "\n")
		}
	}
	if len(pending) > 0 {
		b.WriteString("\n## Questions already asked and still unanswered (do not repeat)\n")
		for _, p := range pending {
			b.WriteString("- " + p + "\n")
		}
	}

	return b.String()
}

// materializeFields 去重并落库本轮新字段
// 去重覆盖两层：库里已有的 field_key 与同批次内重复的 field_key
func (s *InterviewService) materializeFields(projectID uint, collection InputCollection, payloads []fieldPayload, round int) ([]InterviewField, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	existing, err := collection.ExistingKeys(projectID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var fields []InterviewField
	for i, p := range payloads {
		key := p.normalizedKey()
		if key == "" || strings.TrimSpace(p.Label) == "" {
			klog.V(6).Infof("跳过无效访谈字段: projectID=%d, index=%d", projectID, i)
			continue
		}
		if existing[key] || seen[key] {
			klog.V(6).Infof("跳过重复访谈字段: projectID=%d, key=%s", projectID, key)
			continue
		}
		seen[key] = true

		componentType := p.ComponentType
		if componentType == "" {
			componentType = "text"
		}

		dataType := strings.TrimSpace(p.DataType)
		if dataType == "" {
			dataType = "char"
		}

		fields = append(fields, InterviewField{
			FieldKey:         key,
			Label:            strings.TrimSpace(p.Label),
			ComponentType:    componentType,
			DataType:         dataType,
			Options:          jsonArrayOrEmpty(p.Options),
			Tooltip:          p.Tooltip,
			SuggestedAnswers: jsonArrayOrEmpty(p.SuggestedAnswers),
			DependsOn:        p.DependsOn.encode(),
			SpecifyTriggers:  jsonArrayOrEmpty(p.SpecifyTriggers),
			RoundNumber:      round,
			Sequence:         (i + 1) * 10,
		})
		if len(fields) >= fieldsPerRound {
			break
		}
	}

	if len(fields) == 0 {
		return nil, nil
	}
	if err := collection.CreateBatch(projectID, fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// advanceStage 访谈完成后的阶段推进
func (s *InterviewService) advanceStage(ctx context.Context, project *model.Project, to statemachine.ProjectStage) error {
	from := statemachine.ProjectStage(project.CurrentStage)
	if err := s.stageMachine.Transition(from, to, project.ID); err != nil {
		return err
	}
	if err := s.projectRepo.UpdateStage(project.ID, string(to)); err != nil {
		return err
	}
	project.CurrentStage = string(to)
	if s.bus != nil {
		_ = s.bus.Publish(ctx, eventbus.PipelineEvent{
			Type:      eventbus.EventStageChanged,
			ProjectID: project.ID,
			FromStage: string(from),
			ToStage:   string(to),
		})
	}
	return nil
}

// triggersSpecify 判断选项值是否命中补充说明触发列表（JSON 数组字符串）
func triggersSpecify(triggersJSON, value string) bool {
	if triggersJSON == "" {
		return false
	}
	var triggers []string
	if err := json.Unmarshal([]byte(triggersJSON), &triggers); err != nil {
		return false
	}
	for _, t := range triggers {
		if t == value {
			return true
		}
	}
	return false
}

func jsonArrayOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return utils.ToJSON(values)
}
