package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/consultation-service/internal/client"
	"github.com/psds-microservice/consultation-service/internal/config"
	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/internal/session"
)

type replyFlags struct {
	kind     string
	id       uint64
	content  string
	keepOpen bool
	user     string
	role     string
	vetMode  bool
	token    string
	baseURL  string
	locale   string
}

var (
	replyOpts      replyFlags
	ownerReplyOpts replyFlags
)

var replyCmd = &cobra.Command{
	Use:   "reply",
	Short: "Send an official reply to a thread and choose whether the conversation stays open",
	RunE:  runReply,
}

var ownerReplyCmd = &cobra.Command{
	Use:   "owner-reply",
	Short: "Reply to your own thread while its conversation is open",
	RunE:  runOwnerReply,
}

func init() {
	bindReplyFlags(replyCmd, &replyOpts, "admin")
	replyCmd.Flags().BoolVar(&replyOpts.keepOpen, "keep-open", false, "keep the conversation open for the owner")
	bindReplyFlags(ownerReplyCmd, &ownerReplyOpts, "user")
	rootCmd.AddCommand(replyCmd, ownerReplyCmd)
}

func bindReplyFlags(c *cobra.Command, f *replyFlags, defaultRole string) {
	fs := c.Flags()
	fs.StringVar(&f.kind, "kind", "inquiry", "thread kind: inquiry or consultation")
	fs.Uint64Var(&f.id, "id", 0, "thread id")
	fs.StringVar(&f.content, "content", "", "reply text")
	fs.StringVar(&f.user, "user", "", "caller user id")
	fs.StringVar(&f.role, "role", defaultRole, "caller role: user, vet, moderator, admin")
	fs.BoolVar(&f.vetMode, "vet-mode", false, "vet is answering in vet mode")
	fs.StringVar(&f.token, "token", "", "bearer token (overrides the caller headers)")
	fs.StringVar(&f.baseURL, "base-url", "", "API base URL (default API_BASE_URL)")
	fs.StringVar(&f.locale, "locale", "", "message language (default LOCALE)")
	_ = c.MarkFlagRequired("id")
	_ = c.MarkFlagRequired("user")
}

// prepare собирает сессию, HTTP-клиент и опции формы из флагов и конфига.
func (f *replyFlags) prepare(out io.Writer) (session.Session, model.ThreadKind, *client.HTTPClient, []client.FormOption, error) {
	cfg, _, err := setup()
	if err != nil {
		return session.Session{}, "", nil, nil, err
	}
	kind, ok := model.ParseThreadKind(f.kind)
	if !ok {
		return session.Session{}, "", nil, nil, fmt.Errorf("unknown kind %q", f.kind)
	}
	s := session.Session{UserID: f.user, Role: session.ParseRole(f.role), VetMode: f.vetMode}
	baseURL := f.baseURL
	if baseURL == "" {
		baseURL = cfg.APIBaseURL
	}
	locale := config.NormalizeLocale(f.locale)
	if locale == "" {
		locale = cfg.Locale
	}
	var httpOpts []client.HTTPOption
	if f.token != "" {
		httpOpts = append(httpOpts, client.WithToken(f.token))
	}
	opts := []client.FormOption{
		client.WithMessages(client.MessagesFor(locale)),
		client.WithAlerter(client.AlerterFunc(func(a client.Alert) {
			fmt.Fprintf(out, "[%s] %s\n", a.Title, a.Message)
		})),
	}
	return s, kind, client.NewHTTPClient(baseURL, s, httpOpts...), opts, nil
}

func runReply(cmd *cobra.Command, args []string) error {
	s, kind, remote, opts, err := replyOpts.prepare(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	form, err := client.NewResponderForm(remote, s, kind, replyOpts.id, opts...)
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	form.SetDraft(replyOpts.content)
	form.SetKeepOpen(replyOpts.keepOpen)
	if _, err := form.Submit(cmd.Context()); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

func runOwnerReply(cmd *cobra.Command, args []string) error {
	s, kind, remote, opts, err := ownerReplyOpts.prepare(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	detail, err := remote.GetThreadDetail(cmd.Context(), kind, ownerReplyOpts.id)
	if err != nil {
		return fmt.Errorf("load thread: %w", err)
	}
	form, err := client.NewOwnerForm(remote, s, &detail.Thread, opts...)
	if err != nil {
		return fmt.Errorf("owner-reply: %w", err)
	}
	if v := form.View(); v.Locked {
		fmt.Fprintln(cmd.OutOrStdout(), v.Notice)
		return fmt.Errorf("owner-reply: conversation is closed")
	}
	form.SetDraft(ownerReplyOpts.content)
	if _, err := form.Submit(cmd.Context()); err != nil {
		return fmt.Errorf("owner-reply: %w", err)
	}
	return nil
}
