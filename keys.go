package main

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the TUI
type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Search     key.Binding
	Open       key.Binding
	Back       key.Binding
	Install    key.Binding
	Uninstall  key.Binding
	Abort      key.Binding
	Quit       key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
	Select     key.Binding
	SelectAll  key.Binding
	Upgrade    key.Binding
	UpgradeAll key.Binding
	Refresh    key.Binding
}

// defaultKeyMap returns a fresh set of bindings. Each model owns its
// copy because Install and Uninstall are switched off while an
// operation runs.
func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Install: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "install"),
		),
		Uninstall: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "uninstall"),
		),
		Abort: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "abort"),
			key.WithDisabled(),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
		Select: key.NewBinding(
			key.WithKeys(" ", "tab"),
			key.WithHelp("space/tab", "select"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select all"),
		),
		Upgrade: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "upgrade selected"),
		),
		UpgradeAll: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "upgrade all"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// setBusy switches the bindings that must not fire while a live
// operation is running.
func (k *keyMap) setBusy(busy bool) {
	k.Install.SetEnabled(!busy)
	k.Uninstall.SetEnabled(!busy)
	k.Upgrade.SetEnabled(!busy)
	k.UpgradeAll.SetEnabled(!busy)
	k.Refresh.SetEnabled(!busy)
	k.Abort.SetEnabled(busy)
}
