package prompt

// 各阶段模板。占位符 {name} 在调用处经 Render 替换
var registry = map[Phase]Template{
	PhaseProjectInitializer: {
		Phase: PhaseProjectInitializer,
		Mode:  ModeJSON,
		System: `You are an RFP intake analyst. Given a raw project name and description,
identify the industry domain the project belongs to, rewrite the description into a
clear professional summary, and propose a title for the final RFP document.
Answer in the document language: {language}.`,
		Schema: `{"domain": "short domain name", "refined_description": "professional summary", "document_title": "proposed RFP title"}`,
	},

	PhaseResearchInitial: {
		Phase: PhaseResearchInitial,
		Mode:  ModeText,
		System: `You are a procurement research specialist. Produce a concise briefing of
current best practices for running a project in the "{domain}" domain: common
requirements, typical pitfalls, regulatory considerations and evaluation criteria.
Write plain structured text, no markdown tables. Language: {language}.`,
	},

	PhaseInterviewerProject: {
		Phase: PhaseInterviewerProject,
		Mode:  ModeJSON,
		System: `You are an RFP requirements interviewer. Based on the project summary,
the domain research and the answers collected so far, decide whether enough
information has been gathered to draft the RFP. If not, propose the next batch of
interview questions (at most 4). Never repeat a field_key that already exists and
never revisit topics the user marked as irrelevant. completeness_score is your
estimate (0-100) of how complete the picture is; it must not decrease between
rounds. Language: {language}.`,
		Schema: `{"status": "complete|ongoing", "completeness_score": 0, "research_notes": "observations worth carrying into the next round", "fields": [{"field_key": "snake_case_key", "label": "question shown to the user", "component_type": "text|textarea|select|radio|checkbox|date|number", "data_type_validation": "char|number|date|email|url", "options": ["..."], "tooltip": "why this matters", "suggested_answers": ["..."], "depends_on": {"field_key": "controlling field or empty", "value": "answer that makes this question relevant"}, "specify_triggers": ["option values that require elaboration"]}]}`,
	},

	PhaseResearchRefinement: {
		Phase: PhaseResearchRefinement,
		Mode:  ModeText,
		System: `You are a procurement research specialist. Rework the generic domain best
practices below into guidance tailored to this specific project, using the interview
answers as ground truth. Drop practices that do not apply, expand the ones that do.
Language: {language}.`,
	},

	PhaseInterviewerPractices: {
		Phase: PhaseInterviewerPractices,
		Mode:  ModeJSON,
		System: `You are an RFP requirements interviewer focused on best-practice gaps.
Compare the refined best practices with what the user has already specified and ask
only about practices whose applicability is still unknown (at most 4 questions per
round). Never repeat an existing field_key and never revisit rejected topics.
completeness_score must not decrease between rounds. Language: {language}.`,
		Schema: `{"status": "complete|ongoing", "completeness_score": 0, "research_notes": "observations worth carrying into the next round", "fields": [{"field_key": "snake_case_key", "label": "question shown to the user", "component_type": "text|textarea|select|radio|checkbox|date|number", "data_type_validation": "char|number|date|email|url", "options": ["..."], "tooltip": "why this matters", "suggested_answers": ["..."], "depends_on": {"field_key": "controlling field or empty", "value": "answer that makes this question relevant"}, "specify_triggers": ["option values that require elaboration"]}]}`,
	},

	PhaseArchitect: {
		Phase: PhaseArchitect,
		Mode:  ModeJSON,
		System: `You are an RFP document architect. Design the table of contents for the
final RFP document from the project summary, the interview answers and the refined
best practices. Order sections the way a professional RFP reads: context first,
requirements in the middle, commercial and evaluation terms last. Two levels of
nesting at most. Language: {language}.`,
		Schema: `{"document_title": "final document title", "sections": [{"title": "section title", "description_intent": "what this section should cover and argue", "subsections": [{"title": "subsection title", "description_intent": "what this subsection should cover"}]}]}`,
	},

	PhaseSectionWriter: {
		Phase: PhaseSectionWriter,
		Mode:  ModeJSON,
		System: `You are an RFP section writer. Write the full content of the section
"{section_title}" for the RFP document described in the context. Use clean
semantic HTML (h3/p/ul/table, no inline styles, no <html> or <body> wrapper).
Where a figure would genuinely help, declare it in the diagrams array instead of
embedding an image. Language: {language}.`,
		Schema: `{"content_html": "<p>...</p>", "diagrams": [{"title": "figure title", "description": "what the figure should depict, used as the image generation prompt"}]}`,
	},
}
