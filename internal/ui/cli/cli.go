package cli

import "flag"

type cliOptions struct {
	configPath    string
	fix           bool
	dryRun        bool
	format        string
	out           string
	maxDepth      int
	watch         bool
	ui            bool
	impact        string
	trace         string
	history       bool
	since         string
	historyWindow string
	historyTSV    string
	historyJSON   string
	verbose       bool
	version       bool
	args          []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("depsentry", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", "", "Path to depsentry.toml (default: search upward from the project root)")
	fs.BoolVar(&opts.fix, "fix", false, "Remove unused and duplicate imports in place")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Report the fixes -fix would apply without writing files")
	fs.StringVar(&opts.format, "format", "", "Report format: text, json, sarif or markdown")
	fs.StringVar(&opts.out, "out", "", "Write the report to this path instead of stdout")
	fs.IntVar(&opts.maxDepth, "max-depth", 0, "Maximum import chain length followed when searching for cycles")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run the analysis whenever source files change")
	fs.BoolVar(&opts.ui, "ui", false, "Browse findings in the terminal UI (implies -watch)")
	fs.StringVar(&opts.impact, "impact", "", "Print the files affected by changing this file and exit")
	fs.StringVar(&opts.trace, "trace", "", "Print the shortest import chain between two files (<from>:<to>) and exit")
	fs.BoolVar(&opts.history, "history", false, "Record a history snapshot and print the trend")
	fs.StringVar(&opts.since, "since", "", "Include historical snapshots at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&opts.historyWindow, "history-window", "24h", "Moving-window duration for trend summaries (requires -history)")
	fs.StringVar(&opts.historyTSV, "history-tsv", "", "Write trend report TSV to this path (requires -history)")
	fs.StringVar(&opts.historyJSON, "history-json", "", "Write trend report JSON to this path (requires -history)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
