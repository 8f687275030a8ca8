package model

type OverallHealth string

const (
	HealthExcellent      OverallHealth = "EXCELLENT"
	HealthGood           OverallHealth = "GOOD"
	HealthNeedsAttention OverallHealth = "NEEDS_ATTENTION"
	HealthCritical       OverallHealth = "CRITICAL"
)

type IssueSeverity string

const (
	SeverityBlocker IssueSeverity = "BLOCKER"
	SeverityWarning IssueSeverity = "WARNING"
	SeverityInfo    IssueSeverity = "INFO"
)

type HealthIssue struct {
	ID       string        `json:"id"`
	Severity IssueSeverity `json:"severity"`
	Title    string        `json:"title"`
	Category string        `json:"category"`
	FixHint  string        `json:"fixHint"`
	Area     string        `json:"area"`
}

// HealthSnapshot is the scored setup health of one branch.
type HealthSnapshot struct {
	BranchID         string        `json:"branchId"`
	BranchName       string        `json:"branchName"`
	OverallHealth    OverallHealth `json:"overallHealth"`
	ConsistencyScore int           `json:"consistencyScore"`
	NABHScore        int           `json:"nabhScore"`
	GoLiveScore      int           `json:"goLiveScore"`
	GoLiveGrade      string        `json:"goLiveGrade"`
	NamingScore      int           `json:"namingScore"`
	TotalBlockers    int           `json:"totalBlockers"`
	TotalWarnings    int           `json:"totalWarnings"`
	CanGoLive        bool          `json:"canGoLive"`
	TopIssues        []HealthIssue `json:"topIssues"`
	Summary          string        `json:"summary"`
}

type BadgeCount struct {
	Blockers int `json:"blockers"`
	Warnings int `json:"warnings"`
}

// BadgeCounts groups the top issues by navigation area. Issues without an
// area are counted under "general"; INFO issues are ignored.
func (h *HealthSnapshot) BadgeCounts() map[string]BadgeCount {
	counts := make(map[string]BadgeCount)
	if h == nil {
		return counts
	}
	for _, issue := range h.TopIssues {
		area := issue.Area
		if area == "" {
			area = "general"
		}
		c := counts[area]
		switch issue.Severity {
		case SeverityBlocker:
			c.Blockers++
		case SeverityWarning:
			c.Warnings++
		default:
			continue
		}
		counts[area] = c
	}
	return counts
}
