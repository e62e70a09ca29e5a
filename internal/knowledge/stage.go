package knowledge

import (
	"strings"

	"github.com/oncoguide-server/internal/domain"
)

// arabic stage digits accepted as aliases for the roman tokens.
var arabicStages = map[string]string{
	"0": "0",
	"1": "I",
	"2": "II",
	"3": "III",
	"4": "IV",
}

// prostate risk-tier aliases, keyed by a fully squashed lowercase form.
var prostateTiers = map[string]string{
	"lowrisk":          "LowRisk",
	"low":              "LowRisk",
	"intermediaterisk": "IntermediateRisk",
	"intermediate":     "IntermediateRisk",
	"highrisk":         "HighRisk",
	"high":             "HighRisk",
	"metastatic":       "Metastatic",
}

// NormalizeStage maps a free-form stage label to the canonical token of the
// cancer type's staging scheme. Accepts "II", "ii", "Stage II", "stage 2",
// "low risk", "Low-Risk" and similar variants. Returns the input unchanged
// when no alias applies, so unknown tokens still flow into KB lookup and
// surface as an unknown combination there.
func NormalizeStage(cancerType domain.CancerType, raw string) string {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	lower = strings.TrimPrefix(lower, "stage")
	lower = strings.TrimSpace(lower)

	if cancerType == domain.PROSTATE {
		squashed := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(lower)
		if tier, ok := prostateTiers[squashed]; ok {
			return tier
		}
		return s
	}

	if canonical, ok := arabicStages[lower]; ok {
		return canonical
	}

	// Roman numerals case-fold to the canonical uppercase form.
	switch lower {
	case "i", "ii", "iii", "iv":
		return strings.ToUpper(lower)
	}

	return s
}

// FormatStage returns the display form of a canonical stage token, e.g.
// "Stage II" or "Low Risk".
func FormatStage(cancerType domain.CancerType, stage string) string {
	if cancerType == domain.PROSTATE {
		switch stage {
		case "LowRisk":
			return "Low Risk"
		case "IntermediateRisk":
			return "Intermediate Risk"
		case "HighRisk":
			return "High Risk"
		case "Metastatic":
			return "Metastatic"
		}
		return stage
	}
	return "Stage " + stage
}
