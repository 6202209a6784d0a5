package app

import (
	"fmt"
	"strings"

	"smartaudit/internal/ai"
	"smartaudit/internal/model"
)

const (
	extractionMaxTokens = 4000
	summaryMaxTokens    = 1500
	opinionMaxTokens    = 2048
	categorizeMaxTokens = 50
	keywordsMaxTokens   = 200
	queryMaxTokens      = 2048

	illustrationSourceChars = 2000
	visualSourceChars       = 1200
)

const focusDirectiveLabel = "[用户特定关注指令]"

func extractionInstruction(lang ai.Language) string {
	langInstruction := "Please ensure the output is in English."
	if lang.IsZH() {
		langInstruction = "Please ensure the 'field', 'value', and 'sourceContext' in the JSON output are in Chinese (Simplified)."
	}
	return `You are an expert auditor. Analyze the following business proposal documents against the provided rules.
Extract key data points, identify potential risks based on the rules, and cite the context.
Return ONLY a VALID JSON array of objects. Do not wrap in markdown code blocks.
Format: [{"field": "...", "value": "...", "sourceContext": "...", "riskLevel": "Low/Medium/High"}]
` + langInstruction
}

const summaryStructureZH = `请对提供的业务文档进行客观、高度结构化的执行摘要。摘要必须清晰列出以下五个板块，并使用 Markdown 标题或列表格式：
1. **项目背景与目标**：明确阐述方案的起因、必要性及核心预期目标。
2. **核心业务内容**：概括具体的方案执行内容、关键步骤、业务逻辑或技术路线。
3. **主要干系人**：识别涉及的内部部门、外部合作方、客户或受益群体。
4. **资源与财务概况**：提取预算金额、资金来源、人力投入、资产配置等核心数据。
5. **实施计划与里程碑**：识别关键的时间节点、分阶段目标或预计实施周期。

要求：
- 保持客观中立，严禁使用任何主观臆断、夸张或赞美性的形容词（如“优秀的”、“卓越的”、“完美的”）。
- 仅基于文档事实进行精炼总结。`

const summaryStructureEN = `Provide a highly structured, objective executive summary of the provided documents. You must separate the content into these five sections using Markdown headers or lists:
1. **Background & Objective**: State the context and core intent of the proposal.
2. **Core Content**: Summarize the key actions, steps, or business logic of the proposal.
3. **Key Stakeholders**: Identify involved internal departments, external partners, or beneficiaries.
4. **Resource & Financials**: Extract specific data on budgets, funding, staffing, or asset requirements.
5. **Execution Timeline**: Identify key milestones, phases, or the overall project duration.

Requirements:
- Maintain a neutral, professional tone. Strictly avoid subjective praise or adjectives (e.g., "excellent", "pioneering", "perfect").
- Base the summary purely on document facts.`

// summaryInstruction appends the user's focus directive verbatim; the dispatcher
// adds the language directive after it.
func summaryInstruction(lang ai.Language, focus string) string {
	structure := summaryStructureEN
	langInstruction := "Output the summary in English."
	if lang.IsZH() {
		structure = summaryStructureZH
		langInstruction = "Output the summary in Chinese (Simplified)."
	}
	var b strings.Builder
	b.WriteString(structure)
	if focus = strings.TrimSpace(focus); focus != "" {
		fmt.Fprintf(&b, "\n\n%s: %s\n", focusDirectiveLabel, focus)
	}
	b.WriteString("\n")
	b.WriteString(langInstruction)
	return b.String()
}

func opinionInstruction(lang ai.Language, extractionContext string) string {
	langInstruction := "Write the review opinion in English."
	if lang.IsZH() {
		langInstruction = "Write the review opinion in Chinese (Simplified). Use professional auditing terminology (e.g. 审查结论, 合规分析, 风险提示)."
	}
	return `You are a senior compliance officer. Your task is to draft a formal "Review Opinion" (审查意见) for the proposed business scheme.

1. Compare the proposal against the strict Local Rules provided below.
2. Utilize the extracted risk points provided here: ` + extractionContext + `
3. Your output must be a formal document structure including:
   - Review Conclusion (Pass / Reject / Conditional Pass)
   - Compliance Analysis (referencing specific rules)
   - Risk Warnings
   - Required Rectifications (if any)

` + langInstruction
}

func categorizeInstruction(categories []string) string {
	return fmt.Sprintf("Classify the following text into exactly one of these categories: %s.\nRespond with the category name only, exactly as written, and nothing else.",
		strings.Join(categories, ", "))
}

func keywordsInstruction(n int) string {
	return fmt.Sprintf("Extract exactly %d keywords that best describe the following text.\nReturn ONLY a JSON array of %d strings, for example [\"keyword\"]. Do not wrap in markdown code blocks.", n, n)
}

const knowledgeBaseInstruction = `You are a compliance knowledge assistant. Answer the user's question using ONLY the context below.
Each context block starts with [SOURCE: title]. When you use a block, cite it inline with the same [SOURCE: title] marker.
If the context does not contain the answer, say so plainly. Do not make up facts.`

// distillPrompts are the focus directives of each distill mode. Poster has none:
// it is served by the image model directly.
var distillPrompts = map[ai.Language]map[model.DistillType]string{
	ai.LanguageZH: {
		model.DistillMindmap:     "请生成一个层级清晰的手绘风格思维导图大纲（使用 Markdown 嵌套列表格式）。内容需涵盖文档的所有核心维度。",
		model.DistillPPT:         "请生成一个高度视觉化的幻灯片大纲。每一页只需 1 个核心标题和 3 个金句。格式：[Slide X: 标题] 内容。",
		model.DistillExecutive:   "模式：执行摘要。请生成专业且逻辑清晰的提炼报告。",
		model.DistillKeywords:    "模式：关键要素。提取核心关键词和核心数据点。",
		model.DistillSWOT:        "模式：SWOT 分析。请严格按照 [Strengths], [Weaknesses], [Opportunities], [Threats] 输出。",
		model.DistillInfographic: "模式：信息图表。请提炼出文档的 4 个核心支柱要素。格式：[Pillar X: 标题] 描述文字。",
	},
	ai.LanguageEN: {
		model.DistillMindmap:     "Generate a hierarchical mindmap outline using nested Markdown lists. Style it for a conceptual sketch.",
		model.DistillPPT:         "Generate a highly visual slide outline. Each slide: 1 title and 3 key points. Format: [Slide X: Title] content.",
		model.DistillExecutive:   "Mode: Executive Summary. Professional report.",
		model.DistillKeywords:    "Mode: Key Takeaways. Extract main keys and data.",
		model.DistillSWOT:        "Mode: SWOT Analysis. Use [Strengths], [Weaknesses], [Opportunities], [Threats].",
		model.DistillInfographic: "Mode: Infographic. Extract 4 core pillars of the document. Format: [Pillar X: Title] Description text.",
	},
}

func distillPrompt(lang ai.Language, t model.DistillType) string {
	if lang.IsZH() {
		return distillPrompts[ai.LanguageZH][t]
	}
	return distillPrompts[ai.LanguageEN][t]
}

func illustrationPrompt(lang ai.Language, source string) string {
	label := "English"
	if lang.IsZH() {
		label = "Simplified Chinese"
	}
	return fmt.Sprintf(`Create a single professional poster-style illustration that captures the core idea of the business document below.
Use a clean editorial style with strong composition, and keep any visible text short and in %s.

DOCUMENT:
%s`, label, source)
}

var visualStyles = map[model.DistillType]string{
	model.DistillPPT:         "a cinematic presentation backdrop for one slide, abstract and uncluttered so text can sit on top",
	model.DistillSWOT:        "a four-quadrant conceptual artwork that hints at strengths, weaknesses, opportunities and threats",
	model.DistillMindmap:     "a hand-drawn conceptual sketch of connected ideas radiating from a center",
	model.DistillInfographic: "a visual metaphor with four supporting pillars",
}

func creativeVisualPrompt(content string, t model.DistillType, lang ai.Language, themeName string) string {
	style, ok := visualStyles[t]
	if !ok {
		style = "an editorial illustration"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Create %s for the following content.\n", style)
	if themeName = strings.TrimSpace(themeName); themeName != "" {
		fmt.Fprintf(&b, "Use a %s color theme.\n", themeName)
	}
	if lang.IsZH() {
		b.WriteString("Avoid rendering text; if any text is unavoidable, use Simplified Chinese.\n")
	} else {
		b.WriteString("Avoid rendering text; if any text is unavoidable, use English.\n")
	}
	b.WriteString("\nCONTENT:\n")
	b.WriteString(content)
	return b.String()
}
