package tools

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// IndustryBrief is one entry in the fixed research table.
type IndustryBrief struct {
	Industry            string   `json:"industry"`
	GrowthRate          string   `json:"growth_rate"`
	KeyTrends           []string `json:"key_trends"`
	TopCompanies        []string `json:"top_companies"`
	RecruitingChallenge []string `json:"recruiting_challenges"`
	CandidatePriorities []string `json:"candidate_priorities"`
	OutreachStrategies  []string `json:"effective_outreach_strategies"`
}

// ResearchExecutor is a pure lookup against a small fixed table of
// known industries. Unknown industries receive a generic fallback so
// the call never errors on an unrecognized industry string.
type ResearchExecutor struct {
	logger *slog.Logger
}

// NewResearchExecutor creates a ResearchExecutor.
func NewResearchExecutor(logger *slog.Logger) *ResearchExecutor {
	return &ResearchExecutor{logger: logger}
}

// Execute implements the Executor interface.
func (e *ResearchExecutor) Execute(ctx context.Context, scope Scope, input map[string]any) (any, error) {
	industry := stringArg(input, "industry", "")
	e.logger.Info("researching industry", "industry", industry, "session_id", scope.SessionID)

	brief := lookupIndustry(industry)
	brief.Industry = industry
	return brief, nil
}

// lookupIndustry matches case-insensitively and tolerates substrings in
// either direction, so "tech" matches "technology" and "the finance
// sector" matches "finance". Keys are walked in sorted order so an
// input matching several industries resolves the same way every time.
func lookupIndustry(industry string) IndustryBrief {
	needle := strings.ToLower(strings.TrimSpace(industry))
	if needle != "" {
		keys := make([]string, 0, len(industryTable))
		for key := range industryTable {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if strings.Contains(key, needle) || strings.Contains(needle, key) {
				return industryTable[key]
			}
		}
	}

	return IndustryBrief{
		GrowthRate:          "Varies by region and segment",
		KeyTrends:           []string{"Research needed for specific trends"},
		TopCompanies:        []string{"Research needed for specific companies"},
		RecruitingChallenge: []string{"Varies by specific industry segment"},
		CandidatePriorities: []string{"Further research required"},
		OutreachStrategies:  []string{"Customize based on target role and company"},
	}
}

var industryTable = map[string]IndustryBrief{
	"technology": {
		GrowthRate: "14% annually",
		KeyTrends: []string{
			"AI and machine learning integration in business processes",
			"Cloud computing and serverless architectures",
			"Cybersecurity and zero-trust security models",
			"Remote work technology and digital collaboration tools",
		},
		TopCompanies: []string{"Google", "Microsoft", "Apple", "Amazon", "Meta"},
		RecruitingChallenge: []string{
			"High competition for skilled talent",
			"Rapidly evolving skill requirements",
			"High salary expectations",
			"Work-life balance expectations",
		},
		CandidatePriorities: []string{
			"Interesting technical challenges",
			"Remote/flexible work options",
			"Growth and learning opportunities",
			"Competitive compensation and equity",
		},
		OutreachStrategies: []string{
			"Emphasize technical challenges and impact",
			"Highlight team culture and engineering practices",
			"Be transparent about tech stack and development processes",
			"Showcase learning and growth opportunities",
		},
	},
	"healthcare": {
		GrowthRate: "8% annually",
		KeyTrends: []string{
			"Telehealth and remote patient monitoring",
			"AI in diagnostics and predictive healthcare",
			"Electronic health records and interoperability",
			"Personalized medicine and genomics",
		},
		TopCompanies: []string{"UnitedHealth Group", "CVS Health", "Johnson & Johnson", "Pfizer", "Roche"},
		RecruitingChallenge: []string{
			"Specialized certifications and credentials",
			"Regulatory knowledge requirements",
			"High pressure environments",
			"24/7 operation requirements for some roles",
		},
		CandidatePriorities: []string{
			"Mission and impact on patient care",
			"Work-life balance",
			"Job stability",
			"Advanced technology and resources",
		},
		OutreachStrategies: []string{
			"Emphasize mission and patient impact",
			"Highlight stability and professional development",
			"Detail specific practice areas or specialties",
			"Showcase innovative approaches to care",
		},
	},
	"finance": {
		GrowthRate: "5% annually",
		KeyTrends: []string{
			"Digital banking and fintech integration",
			"Blockchain and cryptocurrency adoption",
			"Algorithmic trading and automation",
			"ESG (Environmental, Social, Governance) investing",
		},
		TopCompanies: []string{"JPMorgan Chase", "Bank of America", "Wells Fargo", "Goldman Sachs", "BlackRock"},
		RecruitingChallenge: []string{
			"Regulatory compliance knowledge",
			"Balance of technical and financial expertise",
			"Competition with fintech startups",
			"Image and reputation management",
		},
		CandidatePriorities: []string{
			"Compensation and bonus structure",
			"Career advancement opportunities",
			"Prestige and reputation",
			"Technology adoption and innovation",
		},
		OutreachStrategies: []string{
			"Be specific about compensation structure",
			"Highlight career trajectory and advancement",
			"Emphasize stability with innovation",
			"Detail specific projects or clients when possible",
		},
	},
	"manufacturing": {
		GrowthRate: "3% annually",
		KeyTrends: []string{
			"Industry 4.0 and smart factories",
			"IoT and connected devices",
			"Sustainable manufacturing practices",
			"Reshoring and supply chain resilience",
		},
		TopCompanies: []string{"GE", "Siemens", "Toyota", "Volkswagen", "3M"},
		RecruitingChallenge: []string{
			"Skills gap in advanced manufacturing",
			"Negative perceptions of factory work",
			"Geographic constraints for physical locations",
			"Competition with higher-paying sectors",
		},
		CandidatePriorities: []string{
			"Job security and stability",
			"Safety and work environment",
			"Training and skills development",
			"Company longevity and financial health",
		},
		OutreachStrategies: []string{
			"Highlight modern technology and innovation",
			"Emphasize training and development programs",
			"Focus on stability and growth opportunities",
			"Showcase sustainability initiatives",
		},
	},
	"retail": {
		GrowthRate: "4% annually",
		KeyTrends: []string{
			"Omnichannel and e-commerce integration",
			"Personalization driven by customer data",
			"Same-day fulfillment and last-mile logistics",
			"Experiential and social commerce",
		},
		TopCompanies: []string{"Walmart", "Amazon", "Costco", "Target", "Home Depot"},
		RecruitingChallenge: []string{
			"High turnover in frontline roles",
			"Seasonal hiring surges",
			"Competition for digital and supply chain talent",
			"Wage pressure across markets",
		},
		CandidatePriorities: []string{
			"Schedule flexibility",
			"Clear advancement paths",
			"Employee discounts and benefits",
			"Stable hours and predictable pay",
		},
		OutreachStrategies: []string{
			"Lead with schedule flexibility and advancement",
			"Highlight store culture and team environment",
			"Be upfront about pay and benefits",
			"Showcase growth into corporate or digital roles",
		},
	},
}
