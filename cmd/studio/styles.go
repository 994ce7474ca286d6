package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for the TUI.
var (
	// User message styles.
	userPrefixStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")) // blue
	userBlockStyle  = lipgloss.NewStyle().PaddingLeft(1)

	// Reply styles.
	replyPrefixStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	replyBlockStyle  = lipgloss.NewStyle().PaddingLeft(1)
	liveTextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))

	// Diff styles.
	diffAddStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	diffDelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	diffHunkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta

	// Picker styles.
	pickerBorderStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("6")).Padding(0, 1)
	pickerCursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	pickerSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	favoriteStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow

	// Spinner / animation styles.
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta

	// General utility styles.
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray/dim
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray
	modeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))

	// Error block style.
	errorBlockStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("1"))
	errorTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)
