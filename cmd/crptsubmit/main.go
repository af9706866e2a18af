// Command crptsubmit sends a single document to the registry through the same
// rate-limited client the relay uses and prints the journal entry as JSON.
//
//	crptsubmit -document doc.json -signature "$SIG" [-config config.yaml]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"crptapi/internal/app"
	"crptapi/internal/config"
	"crptapi/internal/crpt"
	"crptapi/internal/logger"
	"crptapi/internal/models"
	"crptapi/internal/submission"
	"crptapi/internal/version"
)

// Exit codes
const (
	exitOK       = 0
	exitFailed   = 1
	exitUsage    = 2
	exitRejected = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	configFile    string
	document      string
	signature     string
	signatureFile string
	raw           bool
	endpoint      string
	exampleConfig string
	showVersion   bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("crptsubmit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configFile, "config", "", "Path to configuration file")
	fs.StringVar(&f.document, "document", "", "Path to the document JSON, or - for stdin")
	fs.StringVar(&f.signature, "signature", "", "Document signature")
	fs.StringVar(&f.signatureFile, "signature-file", "", "Read the signature from a file")
	fs.BoolVar(&f.raw, "raw", false, "Forward the document as-is instead of decoding it as a registry document")
	fs.StringVar(&f.endpoint, "endpoint", "", "Override the registry URL")
	fs.StringVar(&f.exampleConfig, "example-config", "", "Write an example configuration file and exit")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return exitUsage
	}

	ver := version.GetInfo()
	switch {
	case f.showVersion:
		fmt.Fprintln(stdout, ver.String())
		return exitOK
	case f.exampleConfig != "":
		if err := config.SaveExample(f.exampleConfig); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailed
		}
		fmt.Fprintf(stdout, "Example configuration written to %s\n", f.exampleConfig)
		return exitOK
	case f.document == "":
		fmt.Fprintln(stderr, "error: -document is required")
		return exitUsage
	}

	signature, err := readSignature(f)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	body, err := readDocument(f.document, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(f.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
	// Logs never share stdout with the result, and a one-shot run exports nothing.
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	cfg.Metrics.Enabled = false
	cfg.Observability.Tracing.Enabled = false

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
	if closer != nil {
		defer closer.Close()
	}

	var opts []app.Option
	if f.endpoint != "" {
		opts = append(opts, app.WithClientOptions(crpt.WithEndpoint(f.endpoint)))
	}
	relay, err := app.New(cfg, ver, log, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
	defer relay.Close()

	sub, err := submit(ctx, relay.Service, body, signature, f.raw)
	if sub != nil {
		if encErr := writeSubmission(stdout, sub); encErr != nil {
			fmt.Fprintf(stderr, "error: %v\n", encErr)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		var se *submission.ServiceError
		if errors.As(err, &se) && se.Code == models.ErrorCodeUpstreamStatus {
			return exitRejected
		}
		return exitFailed
	}
	return exitOK
}

func submit(ctx context.Context, svc submission.ServiceInterface, body []byte, signature string, raw bool) (*models.Submission, error) {
	if raw {
		return svc.SubmitPayload(ctx, json.RawMessage(body), signature)
	}

	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return svc.SubmitDocument(ctx, &doc, signature)
}

func readSignature(f *flags) (string, error) {
	if f.signatureFile == "" {
		return f.signature, nil
	}
	if f.signature != "" {
		return "", errors.New("-signature and -signature-file are mutually exclusive")
	}
	data, err := os.ReadFile(f.signatureFile)
	if err != nil {
		return "", fmt.Errorf("failed to read signature file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func readDocument(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read document from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

func writeSubmission(w io.Writer, sub *models.Submission) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sub)
}
