// Command intake runs the symptom checker in a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-portal/cmd/mainconfig"
	"github.com/wolfman30/clinic-portal/internal/apiclient"
	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/internal/intake"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var errOffline = errors.New("offline mode")

// offlineAPI stands in for the clinic API when -offline is set; every call
// fails so the local heuristic answers.
type offlineAPI struct{}

func (offlineAPI) Predict(context.Context, map[string]interface{}) (*apiclient.ModelPrediction, error) {
	return nil, errOffline
}

func (offlineAPI) SavePrediction(context.Context, apiclient.SavePredictionRequest) error {
	return errOffline
}

func main() {
	role := flag.String("role", apiclient.RolePatient, "role for a guest conversation (patient, doctor, admin)")
	name := flag.String("name", "", "display name for a guest conversation")
	offline := flag.Bool("offline", false, "skip the clinic API and use the local heuristic")
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := mainconfig.BuildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	sess := session.New(store, logger)
	if err := sess.Bootstrap(ctx); err != nil {
		logger.Warn("no stored session", "error", err)
	}
	user, ok := sess.User()
	if !ok || !sess.Authenticated() {
		user = apiclient.User{Name: *name, Role: *role}
	}

	var submitter *intake.Submitter
	heuristic := intake.NewHeuristic(time.Now().UnixNano())
	if *offline {
		submitter = intake.NewSubmitter(offlineAPI{}, offlineAPI{}, sess, heuristic, nil, logger)
	} else {
		client := apiclient.New(cfg.APIBaseURL(), logger,
			apiclient.WithTimeout(cfg.APITimeout),
			apiclient.WithTokenSource(sess),
			apiclient.WithUnauthorizedHandler(sess.HandleUnauthorized),
		)
		submitter = intake.NewSubmitter(client, client, sess, heuristic, nil, logger)
	}

	if err := run(ctx, os.Stdin, os.Stdout, user, submitter); err != nil {
		logger.Error("intake failed", "error", err)
		os.Exit(1)
	}
}

// run drives one conversation over in/out. Lines starting with /attach
// record a file's metadata; /quit ends early.
func run(ctx context.Context, in io.Reader, out io.Writer, user apiclient.User, submitter *intake.Submitter) error {
	flow, opening := intake.NewFlow(user)
	for _, line := range opening {
		fmt.Fprintf(out, "assistant> %s\n", line)
	}

	scanner := bufio.NewScanner(in)
	for !flow.Done() {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/attach "):
			att, err := attachment(strings.TrimSpace(strings.TrimPrefix(line, "/attach ")))
			if err != nil {
				fmt.Fprintf(out, "error> %v\n", err)
				continue
			}
			if reply := flow.Attach(att); reply != "" {
				fmt.Fprintf(out, "assistant> %s\n", reply)
			} else {
				fmt.Fprintf(out, "assistant> File attached: %s\n", att.Name)
			}
			continue
		}

		reply, _, err := flow.Step(line)
		if errors.Is(err, intake.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}
		if reply != "" {
			fmt.Fprintf(out, "assistant> %s\n", reply)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	res, err := submitter.Submit(ctx, flow)
	if err != nil {
		return err
	}
	printResult(out, res)
	return nil
}

func attachment(path string) (intake.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return intake.Attachment{}, err
	}
	if info.IsDir() {
		return intake.Attachment{}, fmt.Errorf("%s is a directory", path)
	}
	return intake.Attachment{
		Name: info.Name(),
		Type: mime.TypeByExtension(filepath.Ext(path)),
		Size: info.Size(),
	}, nil
}

func printResult(out io.Writer, res *intake.Result) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Assessment:  %s\n", res.Disease)
	fmt.Fprintf(out, "Confidence:  %.0f%%\n", res.Confidence)
	fmt.Fprintf(out, "Severity:    %s\n", res.Severity)
	if res.Description != "" {
		fmt.Fprintf(out, "\n%s\n", res.Description)
	}
	for _, f := range res.ClinicalFindings {
		fmt.Fprintf(out, "\n%s: %s\n", f.Category, f.Findings)
	}
	if len(res.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations:")
		for _, r := range res.Recommendations {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	if res.NextSteps != "" {
		fmt.Fprintf(out, "\nNext steps: %s\n", res.NextSteps)
	}
	if len(res.WhenToSeekHelp) > 0 {
		fmt.Fprintln(out, "\nSeek help right away if you notice:")
		for _, w := range res.WhenToSeekHelp {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	if !res.Saved {
		fmt.Fprintln(out, "\n(This result was not saved to your history.)")
	}
}
