/*
Package cli provides command-line helpers for the beaconlog command.

Output Formatting:

Tabular results such as the upload ledger render as an aligned table,
JSON or CSV:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, cli.UploadTable(entries))

Signal Handling:

	ctx := cli.SetupSignalHandler()    // canceled on SIGINT/SIGTERM
	reloads := cli.ReloadRequests(ctx) // one value per SIGHUP

Exit codes come from ExitCode: configuration errors exit with 2, every
other failure with 1.
*/
package cli
