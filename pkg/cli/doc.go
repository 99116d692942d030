/*
Package cli provides helpers shared by the sentinel commands.

Errors:

Commands return ConfigError for unusable configuration and CommandError for
failures while running; ExitCode maps them to process exit codes, and
UnhealthyError makes `sentinel health` exit non-zero when a probe fails.

Output Formatting:

Results are printed as aligned text tables or JSON:

	out := cli.NewFormatter(cli.FormatJSON)
	if err := out.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
