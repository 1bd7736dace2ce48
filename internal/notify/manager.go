package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"wavebench/internal/report"

	"github.com/slack-go/slack"
)

// Options selects and configures the Slack transport. A webhook URL wins
// over a bot token.
type Options struct {
	Enabled    bool
	WebhookURL string
	Channel    string
	BotToken   string
	// APIURL overrides the Slack Web API endpoint.
	APIURL string
}

// New returns the notifier described by opts, or Nop when notifications are
// disabled or no credentials are available.
func New(opts Options, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.Enabled {
		return Nop{}
	}
	switch {
	case opts.WebhookURL != "":
		n := NewSlackNotifier(opts.WebhookURL)
		n.Channel = opts.Channel
		return n
	case opts.BotToken != "":
		var slackOpts []slack.Option
		if opts.APIURL != "" {
			slackOpts = append(slackOpts, slack.OptionAPIURL(opts.APIURL))
		}
		return NewSlackBotNotifier(opts.BotToken, opts.Channel, slackOpts...)
	default:
		logger.Warn("slack notifications enabled but neither a webhook URL nor SLACK_BOT_USER_TOKEN is set")
		return Nop{}
	}
}

// SummaryMessage formats the short batch summary posted after a run.
func SummaryMessage(s report.Summary, reportPath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Waveform benchmark (%s)*: %d measurements, %d ok, %d failed\n", s.Scale, s.Total, s.Passed, s.Failed)
	if len(s.Ranking) > 0 && s.Ranking[0].AvgS > 0 {
		fmt.Fprintf(&b, "Fastest full parse: %s (%s average)\n", s.Ranking[0].Key, report.FormatTime(s.Ranking[0].AvgS))
	}
	seen := map[string]bool{}
	var failed []string
	for _, f := range s.Failures {
		if !seen[f.Library] {
			seen[f.Library] = true
			failed = append(failed, f.Library)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "Failures in: %s\n", strings.Join(failed, ", "))
	}
	if reportPath != "" {
		fmt.Fprintf(&b, "Report: `%s`\n", reportPath)
	}
	return strings.TrimRight(b.String(), "\n")
}
