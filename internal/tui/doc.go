// Package tui provides the interactive ranking browser behind
// "c4pm analyze --browse".
//
// The browser is read-only. It shows every ranked problem as a card in a
// scrollable viewport, with a header summarizing the ranking and a footer
// tracking the selected problem.
//
// Usage:
//
//	if err := tui.Browse(analysis.Problems(), scheme); err != nil {
//	    return err
//	}
//
// Keys: n/tab and p/shift+tab move between problems, g and G jump to the
// first and last, q or Ctrl+C quits.
package tui
