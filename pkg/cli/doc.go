/*
Package cli holds the terminal helpers shared by the polyglot commands.

Reports and record listings are rendered with lipgloss; styles are bound to
one output stream and fall back to plain text when it is not a terminal:

	styles := cli.NewStyles(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), styles.RenderReport(report))

Batch progress is a single redrawn line on stderr:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(window.Len()))
	progress.Increment(!result.Accepted())
	progress.Finish()

ExitCode maps command errors to process exit codes: 2 for configuration
errors, 3 for a batch timeout and 130 for an interrupt.
*/
package cli
