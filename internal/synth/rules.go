package synth

// Slot names a place in the composed document that rules write text into.
type Slot string

const (
	SlotSummaryAddendum   Slot = "summary.addendum"
	SlotTORExperienceLead Slot = "tor.experience.lead"
	SlotTORExperienceDocs Slot = "tor.experience.docs"
	SlotTORExperienceTool Slot = "tor.experience.tools"
	SlotTORPreviousLead   Slot = "tor.previous.lead"
	SlotTORSkillMethod    Slot = "tor.skills.method"
	SlotTORSkillComply    Slot = "tor.skills.compliance"
	SlotTORSkillDocs      Slot = "tor.skills.docs"
	SlotTORSkillAnalysis  Slot = "tor.skills.analysis"
	SlotSkillExtra        Slot = "skills.extra"
)

// Predicate decides whether a rule applies.
type Predicate func(Facts) bool

// Rule maps a predicate to the text it contributes to a slot.
type Rule struct {
	Name string
	Slot Slot
	When Predicate
	Text string
}

// RuleTable is an ordered list of rules. Order is significant: Resolve takes
// the first match per slot, Collect keeps every match in table order.
type RuleTable []Rule

// Resolve returns the text of the first rule for slot whose predicate holds.
func (rt RuleTable) Resolve(slot Slot, f Facts) string {
	for _, r := range rt {
		if r.Slot == slot && r.matches(f) {
			return r.Text
		}
	}
	return ""
}

// Collect returns the text of every rule for slot whose predicate holds.
func (rt RuleTable) Collect(slot Slot, f Facts) []string {
	var out []string
	for _, r := range rt {
		if r.Slot == slot && r.matches(f) {
			out = append(out, r.Text)
		}
	}
	return out
}

// Matching returns the names of all rules that apply to f.
func (rt RuleTable) Matching(f Facts) []string {
	var names []string
	for _, r := range rt {
		if r.matches(f) {
			names = append(names, r.Name)
		}
	}
	return names
}

func (r Rule) matches(f Facts) bool {
	return r.When == nil || r.When(f)
}

func finance(f Facts) bool      { return f.Finance }
func postIssuance(f Facts) bool { return f.PostIssuance }
func audit(f Facts) bool        { return f.Audit }
func climate(f Facts) bool      { return f.Climate }

// DefaultRules is the built-in phrasing table. Rules with a nil predicate are
// the generic fallback for their slot and must come last within it.
var DefaultRules = RuleTable{
	{Name: "summary-finance", Slot: SlotSummaryAddendum, When: finance,
		Text: "Specialized expertise in financial analysis and regulatory frameworks."},
	{Name: "summary-post-issuance", Slot: SlotSummaryAddendum, When: postIssuance,
		Text: "Experienced in post-issuance review processes and compliance requirements."},
	{Name: "summary-audit", Slot: SlotSummaryAddendum, When: audit,
		Text: "Skilled in conducting thorough assessments and delivering detailed reports aligned with industry standards."},
	{Name: "summary-climate", Slot: SlotSummaryAddendum, When: climate,
		Text: "Brings hands-on experience in climate finance and resilience programmes."},

	{Name: "experience-lead-post-issuance", Slot: SlotTORExperienceLead, When: postIssuance,
		Text: "Conducted comprehensive reviews for multiple projects, ensuring compliance with regulatory standards"},
	{Name: "experience-lead-generic", Slot: SlotTORExperienceLead,
		Text: "Led strategic initiatives for multiple high-profile projects, ensuring successful outcomes"},
	{Name: "experience-docs-audit", Slot: SlotTORExperienceDocs, When: audit,
		Text: "Performed detailed documentation reviews and identified potential compliance issues"},
	{Name: "experience-docs-generic", Slot: SlotTORExperienceDocs,
		Text: "Analyzed complex requirements and identified potential optimization opportunities"},
	{Name: "experience-tools-finance", Slot: SlotTORExperienceTool, When: finance,
		Text: "Developed standardized methodologies that improved efficiency and increased detection of compliance issues"},
	{Name: "experience-tools-generic", Slot: SlotTORExperienceTool,
		Text: "Developed standardized frameworks that improved project efficiency and quality"},
	{Name: "previous-lead-finance", Slot: SlotTORPreviousLead, When: finance,
		Text: "Performed detailed reviews of documentation for compliance with industry regulations"},
	{Name: "previous-lead-generic", Slot: SlotTORPreviousLead,
		Text: "Delivered comprehensive analysis of project requirements and implementation strategies"},

	{Name: "skill-method-post-issuance", Slot: SlotTORSkillMethod, When: postIssuance,
		Text: "Post-Issuance Review Methodologies"},
	{Name: "skill-method-generic", Slot: SlotTORSkillMethod,
		Text: "Project Review Methodologies"},
	{Name: "skill-compliance-finance", Slot: SlotTORSkillComply, When: finance,
		Text: "Financial Regulatory Compliance"},
	{Name: "skill-compliance-generic", Slot: SlotTORSkillComply,
		Text: "Regulatory Compliance"},
	{Name: "skill-docs-audit", Slot: SlotTORSkillDocs, When: audit,
		Text: "Audit Procedures and Documentation"},
	{Name: "skill-docs-generic", Slot: SlotTORSkillDocs,
		Text: "Documentation and Reporting"},
	{Name: "skill-analysis-finance", Slot: SlotTORSkillAnalysis, When: finance,
		Text: "Financial Analysis and Reporting"},
	{Name: "skill-analysis-generic", Slot: SlotTORSkillAnalysis,
		Text: "Technical Analysis and Reporting"},
	{Name: "skill-extra-climate", Slot: SlotSkillExtra, When: climate,
		Text: "Climate Finance & Policy Development"},
}
