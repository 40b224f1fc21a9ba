package alert

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
	"github.com/slack-go/slack"
)

const (
	slackColor  = "#f2c744"
	slackHeader = "New Github Release Version"
)

// Slack posts to a Slack incoming webhook
type Slack struct {
	webhookURL string
	httpClient *http.Client
}

func NewSlack(webhookURL string, opts ...Option) *Slack {
	cfg := newConfig(opts)
	return &Slack{
		webhookURL: webhookURL,
		httpClient: cfg.httpClient,
	}
}

func (x *Slack) Kind() types.ProviderKind { return types.ProviderSlack }

func (x *Slack) Enabled() bool { return x.webhookURL != "" }

// Send posts release. Any 2xx response is a successful delivery.
func (x *Slack) Send(ctx context.Context, release *model.Release) error {
	if err := slack.PostWebhookCustomHTTPContext(ctx, x.webhookURL, x.httpClient, buildSlackMessage(release)); err != nil {
		// slack-go rejects every status other than 200
		var statusErr slack.StatusCodeError
		if errors.As(err, &statusErr) && statusErr.Code >= 200 && statusErr.Code < 300 {
			return nil
		}
		return goerr.Wrap(err, "failed to post slack webhook",
			goerr.V("repo", release.Name),
			goerr.V("tag_name", release.Detail.TagName))
	}
	return nil
}

func buildSlackMessage(release *model.Release) *slack.WebhookMessage {
	msg := fmt.Sprintf("*name:* %s\n*tag:* %s\n*release_name:* %s\n*publish_at:* %s\n*url:* %s\n",
		release.Name,
		release.Detail.TagName,
		release.Detail.ReleaseName,
		release.Detail.PublishedAt,
		release.Detail.HTMLURL,
	)

	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, slackHeader, false, false))
	section := slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, msg, false, false), nil, nil)

	return &slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				Color:  slackColor,
				Blocks: slack.Blocks{BlockSet: []slack.Block{header, section}},
			},
		},
	}
}
