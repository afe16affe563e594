package tui

import "charm.land/lipgloss/v2"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	loaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("135"))

	systemLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Italic(true)

	messageBlockStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	runHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	runFailedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	pendingHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("178"))

	pendingItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("178")).
				PaddingLeft(2)

	listSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	listNormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	listMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
