package model

type RuleCategory string

const (
	RuleLegal      RuleCategory = "Legal"
	RuleFinancial  RuleCategory = "Financial"
	RuleCompliance RuleCategory = "Compliance"
	RuleTechnical  RuleCategory = "Technical"
)

var RuleCategories = []string{
	string(RuleLegal),
	string(RuleFinancial),
	string(RuleCompliance),
	string(RuleTechnical),
}

// Rule is a compliance constraint checked against proposal documents.
// Inactive rules stay stored but never reach a prompt.
type Rule struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Content  string       `json:"content"`
	Category RuleCategory `json:"category"`
	Active   bool         `json:"active"`
}

// DefaultRules is the rule base used until the user saves their own.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "1",
			Title:    "供应商采购限额",
			Content:  "任何超过50,000美元的采购必须经过公开招标程序。严禁在此阈值以上进行直接采购。",
			Category: RuleFinancial,
			Active:   true,
		},
		{
			ID:       "2",
			Title:    "数据隐私合规",
			Content:  "所有处理客户数据的供应商必须持有ISO 27001认证，并在合同执行前签署数据处理协议（DPA）。",
			Category: RuleLegal,
			Active:   true,
		},
		{
			ID:       "3",
			Title:    "付款条款标准",
			Content:  "标准付款期限为净60天。任何要求净30天或预付款的偏差都需要CFO批准。",
			Category: RuleFinancial,
			Active:   true,
		},
	}
}

// ActiveRules filters out deactivated rules, preserving order.
func ActiveRules(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}
