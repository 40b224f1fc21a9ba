package alert

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
	"github.com/m-mizutani/relwatch/pkg/domain/types"
)

// WeChat posts markdown messages to a WeCom group robot webhook
type WeChat struct {
	webhookURL string
	client     *resty.Client
}

type wechatMessage struct {
	MsgType  string         `json:"msgtype"`
	Markdown wechatMarkdown `json:"markdown"`
}

type wechatMarkdown struct {
	Content string `json:"content"`
}

func NewWeChat(webhookURL string, opts ...Option) *WeChat {
	cfg := newConfig(opts)
	client := resty.NewWithClient(cfg.httpClient).
		SetHeader("Content-Type", "application/json")

	return &WeChat{
		webhookURL: webhookURL,
		client:     client,
	}
}

func (x *WeChat) Kind() types.ProviderKind { return types.ProviderWeChat }

func (x *WeChat) Enabled() bool { return x.webhookURL != "" }

func (x *WeChat) Send(ctx context.Context, release *model.Release) error {
	resp, err := x.client.R().
		SetContext(ctx).
		SetBody(buildWeChatMessage(release)).
		Post(x.webhookURL)
	if err != nil {
		return goerr.Wrap(err, "failed to post wechat webhook",
			goerr.V("repo", release.Name),
			goerr.V("tag_name", release.Detail.TagName))
	}

	if !resp.IsSuccess() {
		return goerr.New("wechat webhook returned non-success status",
			goerr.V("repo", release.Name),
			goerr.V("status", resp.StatusCode()))
	}
	return nil
}

func buildWeChatMessage(release *model.Release) *wechatMessage {
	field := func(label, value string) string {
		return fmt.Sprintf("> %s: <font color=\"warning\">%s</font> \n", label, value)
	}

	content := "**<font color=\"warning\">New release version</font>**\n" +
		field("name", string(release.Name)) +
		field("tag", release.Detail.TagName) +
		field("release_name", release.Detail.ReleaseName) +
		field("published_at", release.Detail.PublishedAt) +
		field("url", release.URL)

	return &wechatMessage{
		MsgType:  "markdown",
		Markdown: wechatMarkdown{Content: content},
	}
}
