package mcp

import (
	"fmt"
	"strings"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
	"github.com/quocln/mcp-shrimp-task-manager/internal/search"
)

// FormatTaskList renders tasks grouped by status as markdown.
func FormatTaskList(tasks []domain.Task) string {
	if len(tasks) == 0 {
		return "**No tasks found**\n\nCreate tasks with `split_tasks`."
	}

	groups := map[domain.TaskStatus][]domain.Task{}
	for _, t := range tasks {
		groups[t.Status] = append(groups[t.Status], t)
	}

	displayOrder := []domain.TaskStatus{
		domain.StatusInProgress,
		domain.StatusPending,
		domain.StatusCompleted,
	}

	var sb strings.Builder
	sb.WriteString("# Task List\n\n")
	for _, status := range displayOrder {
		group := groups[status]
		if len(group) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("## %s (%d)\n\n", statusHeader(status), len(group)))
		for _, t := range group {
			sb.WriteString(fmt.Sprintf("- **%s** (`%s`)", t.Name, t.ID))
			if len(t.Dependencies) > 0 {
				sb.WriteString(fmt.Sprintf(" — %d dependencies", len(t.Dependencies)))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func statusHeader(status domain.TaskStatus) string {
	switch status {
	case domain.StatusPending:
		return "Pending"
	case domain.StatusInProgress:
		return "In Progress"
	case domain.StatusCompleted:
		return "Completed"
	case domain.StatusBlocked:
		return "Blocked"
	}
	return string(status)
}

// FormatTaskDetail renders one task fully.
func FormatTaskDetail(t *domain.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", t.Name))
	sb.WriteString(fmt.Sprintf("- ID: `%s`\n", t.ID))
	sb.WriteString(fmt.Sprintf("- Status: %s\n", statusHeader(t.Status)))
	if len(t.Dependencies) > 0 {
		sb.WriteString(fmt.Sprintf("- Dependencies: %s\n", strings.Join(t.Dependencies, ", ")))
	}
	sb.WriteString(fmt.Sprintf("\n## Description\n\n%s\n", t.Description))
	if t.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n## Notes\n\n%s\n", t.Notes))
	}
	if t.ImplementationGuide != "" {
		sb.WriteString(fmt.Sprintf("\n## Implementation Guide\n\n%s\n", t.ImplementationGuide))
	}
	if t.VerificationCriteria != "" {
		sb.WriteString(fmt.Sprintf("\n## Verification Criteria\n\n%s\n", t.VerificationCriteria))
	}
	if len(t.RelatedFiles) > 0 {
		sb.WriteString("\n## Related Files\n\n")
		for _, rf := range t.RelatedFiles {
			sb.WriteString(fmt.Sprintf("- `%s` (%s)", rf.Path, rf.Type))
			if rf.LineStart != nil && rf.LineEnd != nil {
				sb.WriteString(fmt.Sprintf(" lines %d-%d", *rf.LineStart, *rf.LineEnd))
			}
			if rf.Description != "" {
				sb.WriteString(": " + rf.Description)
			}
			sb.WriteString("\n")
		}
	}
	if t.Summary != "" {
		sb.WriteString(fmt.Sprintf("\n## Summary\n\n%s\n", t.Summary))
	}
	return strings.TrimSpace(sb.String())
}

// FormatSearchResult renders one result page.
func FormatSearchResult(query string, result *search.Result) string {
	var sb strings.Builder
	if query == "" {
		sb.WriteString("# All Tasks\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("# Results for %q\n\n", query))
	}

	if result.Pagination.TotalResults == 0 {
		sb.WriteString("No matching tasks.")
		return sb.String()
	}

	for _, t := range result.Tasks {
		sb.WriteString(fmt.Sprintf("- **%s** (`%s`) — %s\n", t.Name, t.ID, statusHeader(t.Status)))
	}
	sb.WriteString(fmt.Sprintf("\nPage %d of %d (%d results)",
		result.Pagination.Page, result.Pagination.TotalPages, result.Pagination.TotalResults))
	if result.Pagination.HasMore {
		sb.WriteString(" — more available")
	}
	return sb.String()
}

// FormatReconcileResult summarizes the newly affected tasks of a batch.
func FormatReconcileResult(mode domain.UpdateMode, affected []domain.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Reconciled (%s)\n\n%d task(s) created or updated:\n\n", mode, len(affected)))
	for _, t := range affected {
		sb.WriteString(fmt.Sprintf("- **%s** (`%s`)\n", t.Name, t.ID))
	}
	return strings.TrimSpace(sb.String())
}

// FormatBlocked explains why a task cannot start.
func FormatBlocked(t *domain.Task, blocking []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Task %q cannot start yet.\n\n", t.Name))
	if t.Status == domain.StatusCompleted {
		sb.WriteString("It is already completed.")
		return sb.String()
	}
	sb.WriteString("Incomplete dependencies:\n\n")
	for _, id := range blocking {
		sb.WriteString(fmt.Sprintf("- `%s`\n", id))
	}
	return strings.TrimSpace(sb.String())
}

// FormatExecution renders the started task with its complexity assessment.
func FormatExecution(t *domain.Task, report *domain.ComplexityReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Task %q is now in progress.\n\n", t.Name))
	sb.WriteString(fmt.Sprintf("Complexity: **%s**\n\n", report.Level))
	for _, rec := range report.Recommendations {
		sb.WriteString(fmt.Sprintf("- %s\n", rec))
	}
	sb.WriteString("\n" + FormatTaskDetail(t))
	return strings.TrimSpace(sb.String())
}
