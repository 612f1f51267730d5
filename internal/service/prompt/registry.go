package prompt

import (
	"fmt"
	"strings"
)

// Phase AI 调用阶段，每个阶段绑定固定的提示词模板与响应结构
type Phase string

const (
	PhaseProjectInitializer   Phase = "project_initializer"   // 领域识别 + 描述精炼
	PhaseResearchInitial      Phase = "research_initial"      // 领域最佳实践初始研究
	PhaseInterviewerProject   Phase = "interviewer_project"   // 项目范围访谈出题
	PhaseResearchRefinement   Phase = "research_refinement"   // 按访谈结果精炼最佳实践
	PhaseInterviewerPractices Phase = "interviewer_practices" // 实践差距访谈出题
	PhaseArchitect            Phase = "architect"             // 文档结构（目录）生成
	PhaseSectionWriter        Phase = "section_writer"        // 章节内容撰写
)

// Mode 响应模式
type Mode string

const (
	ModeJSON Mode = "json" // 期望结构化 JSON
	ModeText Mode = "text" // 自由文本
)

// Template 阶段模板：系统提示词 + 期望的响应 JSON 结构描述
type Template struct {
	Phase  Phase
	Mode   Mode
	System string
	// Schema 以自然语言+示例描述期望的 JSON 结构，JSON 模式下附加到系统提示词尾部
	Schema string
}

// SystemPrompt 组装最终系统提示词
func (t Template) SystemPrompt() string {
	if t.Mode == ModeJSON && t.Schema != "" {
		return t.System + "\n\nRespond with a single JSON object only, no commentary. Expected structure:\n" + t.Schema
	}
	return t.System
}

// Get 取阶段模板，未注册的阶段返回错误
func Get(phase Phase) (Template, error) {
	t, ok := registry[phase]
	if !ok {
		return Template{}, fmt.Errorf("unknown prompt phase: %s", phase)
	}
	return t, nil
}

// Render 替换模板中的 {placeholder} 占位符
func Render(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
