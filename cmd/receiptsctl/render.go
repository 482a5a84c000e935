package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/joseph-ayodele/receipt-directory/internal/directory"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

var (
	folderLabel = color.New(color.Bold).SprintFunc()
	totalLabel  = color.New(color.FgGreen).SprintFunc()
	mutedLabel  = color.New(color.Faint).SprintFunc()
)

// renderTree lays the folder tree out for pterm: years, then months when the year is open,
// then records when the month is open.
func renderTree(tree entity.Tree, folders *directory.FolderState) pterm.TreeNode {
	root := pterm.TreeNode{
		Text: fmt.Sprintf("%s %s", folderLabel("receipts"), summary(tree.Count(), tree.Total().StringFixed(2))),
	}
	for _, y := range tree.SortedYears() {
		yearNode := pterm.TreeNode{
			Text: fmt.Sprintf("%s %s", folderLabel(y.Year), summary(y.Count(), y.TotalAmount.StringFixed(2))),
		}
		if folders.YearExpanded(y.Year) {
			for _, m := range y.SortedMonths() {
				monthNode := pterm.TreeNode{
					Text: fmt.Sprintf("%s %s", folderLabel(m.Name), summary(m.Count(), m.TotalAmount.StringFixed(2))),
				}
				if folders.MonthExpanded(y.Year, m.MonthIndex) {
					for _, r := range m.SortedRecords() {
						monthNode.Children = append(monthNode.Children, pterm.TreeNode{Text: recordLine(r)})
					}
				}
				yearNode.Children = append(yearNode.Children, monthNode)
			}
		}
		root.Children = append(root.Children, yearNode)
	}
	return root
}

func summary(count int, total string) string {
	noun := "receipts"
	if count == 1 {
		noun = "receipt"
	}
	return mutedLabel(fmt.Sprintf("(%d %s, ", count, noun)) + totalLabel("$"+total) + mutedLabel(")")
}

func recordLine(r *entity.ExpenseRecord) string {
	date := "undated"
	if r.HasDate() {
		date = r.Date.Format("Jan 02")
	}
	desc := r.Description
	if desc == "" {
		desc = mutedLabel("no description")
	}
	return fmt.Sprintf("%s  %s  %s  %s  %s", mutedLabel(r.ID), date, r.Category, totalLabel("$"+r.Amount.StringFixed(2)), desc)
}

func expandEverything(tree entity.Tree, folders *directory.FolderState) {
	for _, y := range tree.SortedYears() {
		if !folders.YearExpanded(y.Year) {
			folders.ToggleYear(y.Year)
		}
		for _, m := range y.SortedMonths() {
			if !folders.MonthExpanded(y.Year, m.MonthIndex) {
				folders.ToggleMonth(y.Year, m.MonthIndex)
			}
		}
	}
}
