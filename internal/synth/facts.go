package synth

import (
	"slices"
	"strings"

	"cvforge/internal/types"
)

// Facts are the keyword signals a synthesis strategy is chosen from.
type Facts struct {
	HasTOR          bool `json:"hasTor"`
	HasCompetencies bool `json:"hasCompetencies"`
	Finance         bool `json:"finance"`
	PostIssuance    bool `json:"postIssuance"`
	Audit           bool `json:"audit"`
	Climate         bool `json:"climate"`
}

var (
	financeKeywords      = []string{"finance", "financial", "review"}
	postIssuanceKeywords = []string{"post-issuance", "post issuance"}
	auditKeywords        = []string{"audit", "compliance"}
	climateKeywords      = []string{"climate", "green climate fund", "adaptation finance", "carbon finance"}
)

// DetectFacts inspects the composite input. Domain clusters are read from
// the TOR; climate vocabulary is also accepted from the competencies text.
func DetectFacts(in types.CompositeInput) Facts {
	tor := strings.ToLower(in.TORText())
	comp := strings.ToLower(in.CompetenciesText())

	return Facts{
		HasTOR:          in.HasTOR(),
		HasCompetencies: in.HasCompetencies(),
		Finance:         containsAny(tor, financeKeywords),
		PostIssuance:    containsAny(tor, postIssuanceKeywords),
		Audit:           containsAny(tor, auditKeywords),
		Climate:         containsAny(tor, climateKeywords) || containsAny(comp, climateKeywords),
	}
}

func containsAny(text string, keywords []string) bool {
	return slices.ContainsFunc(keywords, func(k string) bool {
		return strings.Contains(text, k)
	})
}

// Focus lists the TOR focus areas implied by the facts, in a fixed order.
func (f Facts) Focus() []string {
	var focus []string
	if f.Finance {
		focus = append(focus, "financial analysis")
	}
	if f.PostIssuance {
		focus = append(focus, "post-issuance review")
	}
	if f.Audit {
		focus = append(focus, "audit and compliance")
	}
	if f.Climate {
		focus = append(focus, "climate finance")
	}
	return focus
}
