package visibility

import "github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"

// IsVisible reports whether viewerID may see report. A FLAGGED report is
// visible to its author only; every other report is public, including to
// anonymous viewers (empty viewerID).
func IsVisible(report *model.Report, viewerID string) bool {
	if report == nil {
		return false
	}
	if report.Trust.Decision == model.DecisionFlagged {
		return viewerID != "" && viewerID == report.AuthorID
	}
	return true
}

// Filter returns the reports viewerID may see, preserving order
func Filter(reports []model.Report, viewerID string) []model.Report {
	visible := make([]model.Report, 0, len(reports))
	for i := range reports {
		if IsVisible(&reports[i], viewerID) {
			visible = append(visible, reports[i])
		}
	}
	return visible
}
