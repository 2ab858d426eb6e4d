package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoicepdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  export     Export invoices or HTML pages to PDF")
	fmt.Fprintln(w, "  serve      Run the HTTP export service")
	fmt.Fprintln(w, "  doctor     Check the browser, config and storage")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'invoicepdf help <command>' for details on a specific command.")
}

// printCaptureUsage prints the pipeline flags shared by export and serve.
func printCaptureUsage(w io.Writer) {
	fmt.Fprintln(w, "Capture:")
	fmt.Fprintln(w, "      --target <id>         Element to capture (default: invoice-preview)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-export timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --image-timeout <d>   Wait for images, then capture anyway (0 = export timeout)")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: a4, letter, legal")
	fmt.Fprintln(w, "      --scale <f>           Capture oversampling (default: 2, max: 4)")
	fmt.Fprintln(w, "      --verify              Re-read each PDF and check its page count")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Assets:")
	fmt.Fprintln(w, "      --style <name>        Invoice style")
	fmt.Fprintln(w, "      --template <name>     Invoice template set")
	fmt.Fprintln(w, "      --asset-path <dir>    Custom styles and templates")
	fmt.Fprintln(w)
}

// printExportUsage prints usage for the export command.
func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoicepdf export <input>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export invoices (.yaml, .yml, .json) and HTML pages (.html, .htm) to PDF.")
	fmt.Fprintln(w, "Directories are searched recursively.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Invoice fields:")
	fmt.Fprintln(w, "  number, date (\"auto\", \"auto:FORMAT\" or literal), paymentTerms (\"Net 30\"),")
	fmt.Fprintln(w, "  currency (KES, USD, EUR), company, client, items[description, quantity, price],")
	fmt.Fprintln(w, "  tax/discount {value, mode: percent|flat}, payment, notes (Markdown), signature")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (local storage)")
	fmt.Fprintln(w, "  -f, --filename <name>     PDF name, single input only")
	fmt.Fprintln(w, "      --storage <s>         Storage driver: local, s3")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w)
	printCaptureUsage(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show per-stage logs and timing")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoicepdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP export service.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Endpoints:")
	fmt.Fprintln(w, "  POST   /api/invoices      JSON invoice -> PDF (?preview=1 for a preview URL)")
	fmt.Fprintln(w, "  POST   /api/export        {\"html\", \"targetId\", \"filename\"} -> PDF")
	fmt.Fprintln(w, "  GET    /preview/{id}      Serve a preview")
	fmt.Fprintln(w, "  DELETE /preview/{id}      Revoke a preview")
	fmt.Fprintln(w, "  GET    /healthz           Liveness")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default: :8080)")
	fmt.Fprintln(w, "      --public-url <url>    Base URL of preview links")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel browsers (0 = auto)")
	fmt.Fprintln(w, "      --log-format <s>      Log format: text, json")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w)
	printCaptureUsage(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logging")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "export":
		printExportUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: invoicepdf doctor [--json] [--config <name>]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Check the browser, environment, config and storage.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: invoicepdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "completion":
		printCompletionUsage(env.Stdout)
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: invoicepdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
